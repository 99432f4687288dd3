package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incident_analyzer"

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of single-incident analyses, partitioned by rule confidence.",
		},
		[]string{"confidence"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Statistical assistant predictions, partitioned by label.",
		},
		[]string{"label"},
	)

	historyAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_analyses_total",
			Help:      "Total number of incident history aggregations, partitioned by confidence.",
		},
		[]string{"confidence"},
	)

	analysisErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Analyses that failed before producing a result.",
		},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_seconds",
			Help:      "Single-incident analysis latency in seconds.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the analyzer facade.",
		},
		[]string{"code", "method"},
	)
)

// Register attaches analyzer collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		predictionsTotal,
		historyAnalysesTotal,
		analysisErrorsTotal,
		analysisDurationSeconds,
		httpRequestsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records a completed analysis.
func ObserveAnalysis(duration time.Duration, confidence, label string) {
	analysesTotal.WithLabelValues(confidence).Inc()
	predictionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveAnalysisError records an analysis that failed.
func ObserveAnalysisError() {
	analysisErrorsTotal.Inc()
}

// ObserveHistory records a history aggregation.
func ObserveHistory(confidence string) {
	historyAnalysesTotal.WithLabelValues(confidence).Inc()
}

// InstrumentHandler counts requests served by next.
func InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(httpRequestsTotal, next)
}
