package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/XBanTs/ai-sentiment-analysis/internal/usecase"
)

// AnalyzeHandler handles sentiment analysis requests
type AnalyzeHandler struct {
	analyzeUC usecase.AnalyzeUsecase
	policy    ErrorPolicy
	logger    *zap.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(analyzeUC usecase.AnalyzeUsecase, policy ErrorPolicy, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzeUC: analyzeUC,
		policy:    policy,
		logger:    logger,
	}
}

// Analyze handles POST /analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	requestID := c.GetString("request_id")

	input, err := BindAnalyzeInput(c)
	if err != nil {
		HandleAnalyzeError(c, err, h.policy)
		return
	}

	output, err := h.analyzeUC.Analyze(c.Request.Context(), input, requestID)
	if err != nil {
		errResp := MapAnalyzeError(err, h.policy)
		if errResp.StatusCode >= http.StatusInternalServerError {
			h.logger.Error("Analysis failed",
				zap.String("request_id", requestID),
				zap.Int("text_length", len(input.Text)),
				zap.Error(err),
			)
		}
		respondError(c, errResp.StatusCode, errResp.Message)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// Preflight handles OPTIONS /analyze. The CORS middleware answers
// preflights before this runs; the route only has to exist.
func (h *AnalyzeHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
