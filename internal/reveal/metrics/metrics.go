package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RevealsGranted     prometheus.Counter
	RevealsRepeat      prometheus.Counter
	RevealsQuotaDenied prometheus.Counter
	RevealDurationMs   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RevealsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agencydesk_reveals_granted_total",
			Help: "Total number of contact reveals that consumed quota",
		}),
		RevealsRepeat: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agencydesk_reveals_repeat_total",
			Help: "Total number of free re-views of already revealed contacts",
		}),
		RevealsQuotaDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agencydesk_reveals_quota_denied_total",
			Help: "Total number of reveal attempts denied by the daily quota",
		}),
		RevealDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agencydesk_reveal_duration_ms",
			Help:    "Latency of reveal operations in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}

func (m *Metrics) ObserveGranted() {
	if m != nil {
		m.RevealsGranted.Inc()
	}
}

func (m *Metrics) ObserveRepeat() {
	if m != nil {
		m.RevealsRepeat.Inc()
	}
}

func (m *Metrics) ObserveQuotaDenied() {
	if m != nil {
		m.RevealsQuotaDenied.Inc()
	}
}

func (m *Metrics) ObserveDurationMs(ms float64) {
	if m != nil {
		m.RevealDurationMs.Observe(ms)
	}
}
