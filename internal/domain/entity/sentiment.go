package entity

import "errors"

// Sentiment labels produced by the default SST-2 model. Other models may
// return other labels; they are passed through unchanged.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
)

// NoTextMessage is the client-facing message for a request without text
const NoTextMessage = "No text provided. Please include 'text' field in your request."

// Validation errors
var (
	ErrNoText      = errors.New("no text provided")
	ErrTextTooLong = errors.New("text exceeds maximum length")
)

// AnalysisRequest is the input of a single classification
type AnalysisRequest struct {
	Text string `json:"text"`
}

// Validate reports whether the request can be sent to a classifier.
// An absent field and an empty string are treated identically.
func (r *AnalysisRequest) Validate(maxLength int) error {
	if r == nil || r.Text == "" {
		return ErrNoText
	}
	if maxLength > 0 && len([]rune(r.Text)) > maxLength {
		return ErrTextTooLong
	}
	return nil
}

// SentimentResult is the label/confidence pair returned by a classifier
type SentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
