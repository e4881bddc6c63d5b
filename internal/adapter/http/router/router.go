package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/http/handler"
	"github.com/XBanTs/ai-sentiment-analysis/internal/adapter/http/middleware"
	"github.com/XBanTs/ai-sentiment-analysis/internal/domain/service"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/config"
	"github.com/XBanTs/ai-sentiment-analysis/internal/infrastructure/metrics"
	"github.com/XBanTs/ai-sentiment-analysis/internal/usecase"
)

// Options holds the dependencies of the router
type Options struct {
	AnalyzeUC   usecase.AnalyzeUsecase
	ErrorPolicy handler.ErrorPolicy
	CORS        config.CORSConfig
	Model       *service.ModelInfo
	Redis       *redis.Client
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// Setup creates and configures the Gin router
func Setup(opts Options) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.Metrics(opts.Metrics))

	// Health endpoints
	healthHandler := handler.NewHealthHandler(opts.Model, opts.Redis)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Analyze routes; CORS applies here only
	analyzeHandler := handler.NewAnalyzeHandler(opts.AnalyzeUC, opts.ErrorPolicy, opts.Logger)
	analyze := router.Group("/analyze")
	analyze.Use(middleware.CORS(opts.CORS))
	{
		analyze.POST("", analyzeHandler.Analyze)
		analyze.OPTIONS("", analyzeHandler.Preflight)
	}

	return router
}
