package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
)

var testModel = &service.ModelInfo{
	Backend:  "onnx",
	Model:    "distilbert/distilbert-base-uncased-finetuned-sst-2-english",
	Revision: "714eb0f",
	Labels:   []string{"NEGATIVE", "POSITIVE"},
}

func serveHealth(t *testing.T, h *HealthHandler, path string) (*httptest.ResponseRecorder, HealthStatus) {
	t.Helper()
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	req, _ := http.NewRequest("GET", path, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var status HealthStatus
	if path == "/health" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	}
	return w, status
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("healthy without cache", func(t *testing.T) {
		w, status := serveHealth(t, NewHealthHandler(testModel, nil), "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, testModel, status.Model)
		assert.Contains(t, w.Body.String(), `"labels":["NEGATIVE","POSITIVE"]`)
		assert.Equal(t, "ok", status.Components["classifier"])
		assert.Equal(t, "not configured", status.Components["redis"])
	})

	t.Run("healthy with cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()

		w, status := serveHealth(t, NewHealthHandler(testModel, rdb), "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "ok", status.Components["redis"])
	})

	t.Run("cache outage degrades but stays alive", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()
		mr.Close()

		w, status := serveHealth(t, NewHealthHandler(testModel, rdb), "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "degraded", status.Status)
		assert.Contains(t, status.Components["redis"], "error: ")
	})
}

func TestHealthHandler_Ready(t *testing.T) {
	t.Run("ready once the classifier is loaded", func(t *testing.T) {
		w, _ := serveHealth(t, NewHealthHandler(testModel, nil), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ready")
	})

	t.Run("not ready without classifier", func(t *testing.T) {
		w, _ := serveHealth(t, NewHealthHandler(nil, nil), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "classifier not loaded")
	})
}
