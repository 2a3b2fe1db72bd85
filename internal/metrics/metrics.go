package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "norulez"

// Metrics holds every collector the API exports. A nil *Metrics is valid and
// records nothing, which keeps tests and tools free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	gamesCreated    prometheus.Counter
	gamesJoined     prometheus.Counter
	gamesFinished   prometheus.Counter
	turns           *prometheus.CounterVec
	refereeRequests *prometheus.CounterVec
	refereeDuration *prometheus.HistogramVec
	refereeTokens   *prometheus.HistogramVec
	parseStrategy   *prometheus.CounterVec
	images          *prometheus.CounterVec
}

// New registers the collectors on a private registry so the process-wide
// default registry stays untouched.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		gamesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Total number of games created.",
		}),
		gamesJoined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_joined_total",
			Help:      "Total number of games a second player joined.",
		}),
		gamesFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Total number of games that reached a knockout.",
		}),
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turn submissions, partitioned by outcome.",
		}, []string{"outcome"}),
		refereeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referee_requests_total",
			Help:      "LLM calls, partitioned by provider and status.",
		}, []string{"provider", "status"}),
		refereeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "referee_request_duration_seconds",
			Help:      "Latency of LLM calls.",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60, 120},
		}, []string{"provider"}),
		refereeTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "referee_prompt_tokens",
			Help:      "Estimated prompt size sent to the referee.",
			Buckets:   prometheus.LinearBuckets(250, 250, 12),
		}, []string{"provider"}),
		parseStrategy: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referee_parse_strategy_total",
			Help:      "Which parser tier recovered the referee response.",
		}, []string{"strategy"}),
		images: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Scene image generations, partitioned by outcome.",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) GameCreated() {
	if m != nil {
		m.gamesCreated.Inc()
	}
}

func (m *Metrics) GameJoined() {
	if m != nil {
		m.gamesJoined.Inc()
	}
}

func (m *Metrics) GameFinished() {
	if m != nil {
		m.gamesFinished.Inc()
	}
}

// Turn records a turn outcome such as "resolved", "rejected" or "fumbled".
func (m *Metrics) Turn(outcome string) {
	if m != nil {
		m.turns.WithLabelValues(outcome).Inc()
	}
}

// RefereeCall records one LLM round trip.
func (m *Metrics) RefereeCall(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.refereeRequests.WithLabelValues(provider, status).Inc()
	m.refereeDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) PromptTokens(provider string, n int) {
	if m != nil && n > 0 {
		m.refereeTokens.WithLabelValues(provider).Observe(float64(n))
	}
}

func (m *Metrics) ParseStrategy(strategy string) {
	if m != nil {
		m.parseStrategy.WithLabelValues(strategy).Inc()
	}
}

// Image records "generated", "failed", "timeout" or "skipped".
func (m *Metrics) Image(outcome string) {
	if m != nil {
		m.images.WithLabelValues(outcome).Inc()
	}
}
