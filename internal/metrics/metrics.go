package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the chat, feedback and stats flows.
type Metrics struct {
	chatTotal       *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	feedbackTotal   *prometheus.CounterVec
	statsWrites     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskchat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by task type and outcome",
		}, []string{"task_type", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskchat",
			Subsystem: "gateway",
			Name:      "upstream_latency_seconds",
			Help:      "Latency of completion API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task_type"}),
		feedbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskchat",
			Subsystem: "feedback",
			Name:      "submitted_total",
			Help:      "Feedback submissions by helpful flag",
		}, []string{"helpful"}),
		statsWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskchat",
			Subsystem: "stats",
			Name:      "writes_total",
			Help:      "Session stats upserts",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTotal, m.upstreamLatency, m.feedbackTotal, m.statsWrites)
	return m
}

// ObserveChat counts one chat request. outcome is "ok", "fallback" or an error kind.
func (m *Metrics) ObserveChat(taskType, outcome string) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(taskType, outcome).Inc()
}

func (m *Metrics) ObserveUpstreamLatency(taskType string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(taskType).Observe(seconds)
}

func (m *Metrics) ObserveFeedback(helpful bool) {
	if m == nil {
		return
	}
	label := "false"
	if helpful {
		label = "true"
	}
	m.feedbackTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveStatsWrite() {
	if m == nil {
		return
	}
	m.statsWrites.Inc()
}
