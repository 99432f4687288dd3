package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/miradorstack/incident-analyzer/internal/cache"
	"github.com/miradorstack/incident-analyzer/internal/engine"
	"github.com/miradorstack/incident-analyzer/internal/models"
)

type predictorStub struct {
	calls int
	err   error
}

func (p *predictorStub) Predict(incident models.Incident) (models.Prediction, error) {
	p.calls++
	if p.err != nil {
		return models.Prediction{}, p.err
	}
	return models.Prediction{Label: "Memory Leak", Explanation: "stub"}, nil
}

func TestAnalyzeMergesRuleAndPrediction(t *testing.T) {
	service := NewAnalyzerService(nil, Options{})

	analysis, err := service.Analyze(context.Background(), models.Incident{CPU: 90, Memory: 70, RecentDeployment: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(analysis.Rule.RootCauses, []string{engine.CauseBadDeployment}) {
		t.Fatalf("unexpected root causes: %v", analysis.Rule.RootCauses)
	}
	if analysis.Rule.Score != 3 || analysis.Rule.Confidence != models.ConfidenceMedium {
		t.Fatalf("unexpected rule result: %+v", analysis.Rule)
	}
	if analysis.Prediction.Label == "" || analysis.Prediction.Explanation == "" {
		t.Fatalf("expected a prediction, got %+v", analysis.Prediction)
	}

	resp := analysis.Response()
	if resp.MLPrediction != analysis.Prediction.Label || resp.Confidence != models.ConfidenceMedium {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnalyzeFreshPredictorMatchesShared(t *testing.T) {
	incident := models.Incident{CPU: 95, Memory: 92, Error: models.TimeoutError, RecentDeployment: true}

	shared, err := NewAnalyzerService(nil, Options{Predictors: SharedPredictor}).Analyze(context.Background(), incident)
	if err != nil {
		t.Fatalf("shared: %v", err)
	}
	fresh, err := NewAnalyzerService(nil, Options{Predictors: FreshPredictor}).Analyze(context.Background(), incident)
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if shared.Prediction != fresh.Prediction {
		t.Fatalf("refitting must not change predictions: %+v vs %+v", shared.Prediction, fresh.Prediction)
	}
	if shared.Prediction.Label != "Resource Exhaustion" {
		t.Fatalf("unexpected label for training row: %s", shared.Prediction.Label)
	}
}

func TestAnalyzePropagatesPredictorErrors(t *testing.T) {
	stub := &predictorStub{err: errors.New("singular matrix")}
	service := NewAnalyzerService(nil, Options{Predictors: func() (Predictor, error) { return stub, nil }})

	if _, err := service.Analyze(context.Background(), models.Incident{}); err == nil {
		t.Fatalf("expected prediction error")
	}

	failing := NewAnalyzerService(nil, Options{Predictors: func() (Predictor, error) { return nil, errors.New("fit failed") }})
	if _, err := failing.Analyze(context.Background(), models.Incident{}); err == nil {
		t.Fatalf("expected initialisation error")
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	provider, err := cache.NewLRUProvider(8)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	stub := &predictorStub{}
	service := NewAnalyzerService(nil, Options{
		Predictors: func() (Predictor, error) { return stub, nil },
		Cache:      provider,
	})

	incident := models.Incident{CPU: 50, Memory: 85, Error: models.TimeoutError}
	first, err := service.Analyze(context.Background(), incident)
	if err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	second, err := service.Analyze(context.Background(), incident)
	if err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	if stub.calls != 1 {
		t.Fatalf("expected one prediction, got %d", stub.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached analysis differs:\n%+v\n%+v", first, second)
	}
	if service.LatencyP95() < 0 {
		t.Fatalf("latency must not be negative")
	}
}

func TestAnalyzeHistory(t *testing.T) {
	service := NewAnalyzerService(nil, Options{})
	spike := models.Incident{CPU: 95, Memory: 50, RecentDeployment: true}

	res, err := service.AnalyzeHistory(context.Background(), []models.Incident{spike, spike, spike})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MostCommonIssue != engine.CauseBadDeployment || res.Occurrences != 3 || res.Confidence != models.ConfidenceHigh {
		t.Fatalf("unexpected history: %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.AnalyzeHistory(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestCacheKeyDistinguishesIncidents(t *testing.T) {
	a := cacheKey(models.Incident{CPU: 1, Memory: 2, Error: "x"})
	b := cacheKey(models.Incident{CPU: 1, Memory: 2, Error: "x", RecentDeployment: true})
	c := cacheKey(models.Incident{CPU: 12, Memory: 0, Error: "x"})
	if a == b || a == c {
		t.Fatalf("cache keys collide: %s %s %s", a, b, c)
	}
}

func TestLatencyLoggingContinuesPastWindow(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	stub := &predictorStub{}
	service := NewAnalyzerService(logger, Options{Predictors: func() (Predictor, error) { return stub, nil }})

	const analyses = 1100
	for i := 0; i < analyses; i++ {
		if _, err := service.Analyze(context.Background(), models.Incident{CPU: float64(i % 100)}); err != nil {
			t.Fatalf("analysis %d: %v", i, err)
		}
	}

	if got, want := strings.Count(buf.String(), "analysis latency"), analyses/latencyLogInterval; got != want {
		t.Fatalf("expected %d latency log lines, got %d", want, got)
	}
	if !strings.Contains(buf.String(), "samples=1100") {
		t.Fatalf("expected a latency line after the window wrapped:\n%s", buf.String()[max(0, buf.Len()-400):])
	}
}

func TestAnalyzeLogsProbabilitiesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	service := NewAnalyzerService(logger, Options{})

	if _, err := service.Analyze(context.Background(), models.Incident{CPU: 60, Memory: 85, Error: models.TimeoutError}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "assistant probabilities") {
		t.Fatalf("expected probabilities in debug log:\n%s", buf.String())
	}

	buf.Reset()
	quiet := NewAnalyzerService(slog.New(slog.NewTextHandler(&buf, nil)), Options{})
	if _, err := quiet.Analyze(context.Background(), models.Incident{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "assistant probabilities") {
		t.Fatalf("probabilities must not be logged above debug level")
	}
}
