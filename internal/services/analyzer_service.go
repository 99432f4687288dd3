package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/miradorstack/incident-analyzer/internal/cache"
	"github.com/miradorstack/incident-analyzer/internal/classifier"
	"github.com/miradorstack/incident-analyzer/internal/engine"
	"github.com/miradorstack/incident-analyzer/internal/metrics"
	"github.com/miradorstack/incident-analyzer/internal/models"
	"github.com/miradorstack/incident-analyzer/internal/utils"
)

// latencyLogInterval is how many analyses pass between p95 latency log lines.
const latencyLogInterval = 20

// Predictor suggests a root cause label for an incident.
type Predictor interface {
	Predict(incident models.Incident) (models.Prediction, error)
}

// probabilityPredictor is implemented by predictors that expose per-label probabilities.
type probabilityPredictor interface {
	Probabilities(incident models.Incident) (map[string]float64, error)
}

// PredictorSource yields the predictor used for a single analysis.
type PredictorSource func() (Predictor, error)

// SharedPredictor returns the process-wide fitted assistant.
func SharedPredictor() (Predictor, error) {
	return classifier.Shared()
}

// FreshPredictor fits a new assistant on every call.
func FreshPredictor() (Predictor, error) {
	return classifier.NewAssistant()
}

// Options tune the analyzer service.
type Options struct {
	Predictors PredictorSource
	Cache      cache.Provider
}

// AnalyzerService combines the rule evaluator and the statistical assistant.
type AnalyzerService struct {
	logger     *slog.Logger
	predictors PredictorSource
	cache      cache.Provider
	latencies  *utils.LatencyTracker
}

// NewAnalyzerService constructs the analyzer facade.
func NewAnalyzerService(logger *slog.Logger, opts Options) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Predictors == nil {
		opts.Predictors = SharedPredictor
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	return &AnalyzerService{
		logger:     logger,
		predictors: opts.Predictors,
		cache:      opts.Cache,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// Analyze runs the rule evaluator and the statistical assistant on one incident.
func (s *AnalyzerService) Analyze(ctx context.Context, incident models.Incident) (models.Analysis, error) {
	start := time.Now()
	key := cacheKey(incident)

	if analysis, ok := s.cached(ctx, key); ok {
		s.observe(start, analysis)
		return analysis, nil
	}

	rule := engine.Evaluate(incident)

	predictor, err := s.predictors()
	if err != nil {
		metrics.ObserveAnalysisError()
		return models.Analysis{}, fmt.Errorf("initialise assistant: %w", err)
	}
	prediction, err := predictor.Predict(incident)
	if err != nil {
		metrics.ObserveAnalysisError()
		return models.Analysis{}, fmt.Errorf("assistant prediction: %w", err)
	}

	s.logProbabilities(ctx, predictor, incident)

	analysis := models.Analysis{Rule: rule, Prediction: prediction}
	s.store(ctx, key, analysis)
	s.observe(start, analysis)

	s.logger.Debug("incident analysed",
		slog.Any("root_causes", rule.RootCauses),
		slog.String("confidence", string(rule.Confidence)),
		slog.String("ml_prediction", prediction.Label))
	return analysis, nil
}

// AnalyzeHistory reports the most frequent rule-detected cause across incidents.
func (s *AnalyzerService) AnalyzeHistory(ctx context.Context, incidents []models.Incident) (models.HistoryResult, error) {
	if err := ctx.Err(); err != nil {
		return models.HistoryResult{}, err
	}
	result := engine.AggregateHistory(incidents)
	metrics.ObserveHistory(string(result.Confidence))
	s.logger.Debug("incident history analysed",
		slog.Int("incidents", len(incidents)),
		slog.String("most_common_issue", result.MostCommonIssue),
		slog.Int("occurrences", result.Occurrences))
	return result, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalyzerService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func (s *AnalyzerService) observe(start time.Time, analysis models.Analysis) {
	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, string(analysis.Rule.Confidence), analysis.Prediction.Label)
	if total := s.latencies.Total(); total%latencyLogInterval == 0 {
		s.logger.Info("analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("window", s.latencies.Count()),
			slog.Int("samples", total))
	}
}

func (s *AnalyzerService) logProbabilities(ctx context.Context, predictor Predictor, incident models.Incident) {
	p, ok := predictor.(probabilityPredictor)
	if !ok || !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	probs, err := p.Probabilities(incident)
	if err != nil {
		s.logger.Debug("assistant probabilities unavailable", slog.Any("error", err))
		return
	}
	s.logger.Debug("assistant probabilities", slog.Any("probabilities", probs))
}

func (s *AnalyzerService) cached(ctx context.Context, key string) (models.Analysis, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("analysis cache read failed", slog.Any("error", err))
		}
		return models.Analysis{}, false
	}
	var analysis models.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		s.logger.Warn("discarding undecodable cache entry", slog.Any("error", err))
		return models.Analysis{}, false
	}
	return analysis, true
}

func (s *AnalyzerService) store(ctx context.Context, key string, analysis models.Analysis) {
	data, err := json.Marshal(analysis)
	if err != nil {
		s.logger.Warn("analysis cache encode failed", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("analysis cache write failed", slog.Any("error", err))
	}
}

func cacheKey(incident models.Incident) string {
	return "analysis:" +
		strconv.FormatFloat(incident.CPU, 'g', -1, 64) + ":" +
		strconv.FormatFloat(incident.Memory, 'g', -1, 64) + ":" +
		strconv.Quote(incident.Error) + ":" +
		strconv.FormatBool(incident.RecentDeployment)
}
