package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/miradorstack/incident-analyzer/internal/config"
	"github.com/miradorstack/incident-analyzer/internal/metrics"
	"github.com/miradorstack/incident-analyzer/internal/models"
	"github.com/miradorstack/incident-analyzer/internal/utils"
)

// StatusMessage is served on GET /.
const StatusMessage = "AI Incident Root Cause Analyzer Backend is running"

// Analyzer is the behaviour the transport layers need from the analyzer service.
type Analyzer interface {
	Analyze(ctx context.Context, incident models.Incident) (models.Analysis, error)
	AnalyzeHistory(ctx context.Context, incidents []models.Incident) (models.HistoryResult, error)
}

type routes struct {
	logger   *slog.Logger
	analyzer Analyzer
}

// NewHTTPHandler builds the HTTP facade: gin routes wrapped with CORS and
// request counting.
func NewHTTPHandler(logger *slog.Logger, analyzer Analyzer, corsCfg config.CORSConfig) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &routes{logger: logger, analyzer: analyzer}

	engine := gin.New()
	engine.Use(requestLogger(logger), gin.Recovery())
	engine.GET("/", h.status)
	engine.POST("/analyze", h.analyze)
	engine.POST("/analyze/history", h.analyzeHistory)

	return metrics.InstrumentHandler(newCORS(corsCfg).Handler(engine))
}

// NewHTTPServer wraps handler in an http.Server using the configured timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func newCORS(cfg config.CORSConfig) *cors.Cors {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
}

func (h *routes) status(c *gin.Context) {
	c.String(http.StatusOK, StatusMessage)
}

func (h *routes) analyze(c *gin.Context) {
	fields, err := DecodeFields(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	incident, err := IncidentFromFields(fields)
	if err != nil {
		h.fail(c, err)
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), incident)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis.Response())
}

func (h *routes) analyzeHistory(c *gin.Context) {
	fields, err := DecodeFields(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	incidents, err := IncidentsFromFields(fields)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.analyzer.AnalyzeHistory(c.Request.Context(), incidents)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *routes) fail(c *gin.Context, err error) {
	h.logger.Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Bool("invalid_input", utils.IsAppError(err)),
		slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}
