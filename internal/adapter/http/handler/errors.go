package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/entity"
)

// internalErrorDescription replaces the failure text when errors are not exposed
const internalErrorDescription = "internal error"

// ErrorPolicy controls how analyze errors are rendered
type ErrorPolicy struct {
	ExposeErrors  bool
	MaxTextLength int
}

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	StatusCode int
	Message    string
}

// MapAnalyzeError maps analyze errors to HTTP error responses.
// Validation errors are client errors; anything else is an analysis failure.
func MapAnalyzeError(err error, policy ErrorPolicy) ErrorResponse {
	var bodyErr *InvalidBodyError
	switch {
	case errors.Is(err, entity.ErrNoText):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    entity.NoTextMessage,
		}
	case errors.Is(err, entity.ErrTextTooLong):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("Text is too long. Maximum length is %d characters.", policy.MaxTextLength),
		}
	case errors.As(err, &bodyErr):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    bodyErr.Error(),
		}
	default:
		description := internalErrorDescription
		if policy.ExposeErrors && err != nil {
			description = err.Error()
		}
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    "Analysis failed: " + description,
		}
	}
}

// HandleAnalyzeError sends the JSON error response for err.
func HandleAnalyzeError(c *gin.Context, err error, policy ErrorPolicy) {
	errResp := MapAnalyzeError(err, policy)
	respondError(c, errResp.StatusCode, errResp.Message)
}
