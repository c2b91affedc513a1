package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	agentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_agent_runs_total",
			Help: "Total number of agent runs",
		},
		[]string{"agent", "status"},
	)

	agentRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentarch_agent_run_duration_seconds",
			Help:    "Agent run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_escalations_total",
			Help: "Total number of loop escalations",
		},
		[]string{"agent"},
	)

	// Model metrics
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_model_calls_total",
			Help: "Total number of model calls",
		},
		[]string{"provider", "model", "status"},
	)

	modelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentarch_model_call_duration_seconds",
			Help:    "Model call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	modelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_model_tokens_total",
			Help: "Total tokens consumed by model calls",
		},
		[]string{"provider", "model", "kind"},
	)

	modelCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_model_cost_usd_total",
			Help: "Estimated model spend in USD",
		},
		[]string{"provider", "model"},
	)

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentarch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentarch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	initOnce sync.Once
)

// InitMetrics registers the collectors with the default registry
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			agentRunsTotal,
			agentRunDuration,
			escalationsTotal,
			modelCallsTotal,
			modelCallDuration,
			modelTokensTotal,
			modelCostTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentRun records one run of a root agent
func RecordAgentRun(agent string, err error, duration time.Duration) {
	agentRunsTotal.WithLabelValues(agent, statusLabel(err)).Inc()
	agentRunDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordEscalation records a loop stopped by escalation
func RecordEscalation(agent string) {
	escalationsTotal.WithLabelValues(agent).Inc()
}

// RecordModelCall records one model call and its token usage
func RecordModelCall(provider, model string, err error, duration time.Duration, promptTokens, completionTokens int) {
	modelCallsTotal.WithLabelValues(provider, model, statusLabel(err)).Inc()
	modelCallDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		modelTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		modelTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordModelCost adds an estimated spend for one model call
func RecordModelCost(provider, model string, usd float64) {
	if usd > 0 {
		modelCostTotal.WithLabelValues(provider, model).Add(usd)
	}
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
