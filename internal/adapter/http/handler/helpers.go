package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/XBanTs/ai-sentiment-analysis/internal/usecase"
)

// InvalidBodyError reports a request body that is not a JSON object with a string text field
type InvalidBodyError struct {
	Err error
}

func (e *InvalidBodyError) Error() string {
	return "Invalid request body: " + e.Err.Error()
}

func (e *InvalidBodyError) Unwrap() error {
	return e.Err
}

// BindAnalyzeInput decodes the JSON body of an analyze request.
// An empty body decodes to an input without text.
func BindAnalyzeInput(c *gin.Context) (*usecase.AnalyzeInput, error) {
	var input usecase.AnalyzeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return &input, nil
		}
		return nil, &InvalidBodyError{Err: err}
	}
	return &input, nil
}
