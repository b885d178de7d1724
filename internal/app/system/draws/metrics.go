package draws

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instruments for draws, sweeps and notification
// delivery. A nil *Metrics, or one never registered, records nothing.
type Metrics struct {
	draws         *prometheus.CounterVec
	drawDuration  prometheus.Histogram
	sweepDuration prometheus.Histogram
	sweepGroups   *prometheus.CounterVec
	notifications *prometheus.CounterVec

	registerOnce sync.Once
}

// NewMetrics returns Metrics registered with registry (nil skips
// registration).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.Register(registry)
	return m
}

// Register registers the instruments once. Later calls are no-ops.
func (m *Metrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.draws = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftbubble_draws_total",
			Help: "Draw attempts by outcome (success or error kind)",
		}, []string{"outcome", "trigger"})

		m.drawDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftbubble_draw_duration_seconds",
			Help:    "Wall time of one draw attempt including persistence",
			Buckets: prometheus.DefBuckets,
		})

		m.sweepDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftbubble_sweep_duration_seconds",
			Help:    "Wall time of one scheduled sweep",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		})

		m.sweepGroups = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftbubble_sweep_groups_total",
			Help: "Groups seen by scheduled sweeps by result",
		}, []string{"result"})

		m.notifications = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "giftbubble_notifications_total",
			Help: "Post-draw notifications by channel and outcome",
		}, []string{"channel", "outcome"})
	})
}

// ObserveDraw records one draw attempt.
func (m *Metrics) ObserveDraw(trigger string, err error, seconds float64) {
	if m == nil || m.draws == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.draws.WithLabelValues(outcome, trigger).Inc()
	m.drawDuration.Observe(seconds)
}

// ObserveSweep records one sweep's totals.
func (m *Metrics) ObserveSweep(res SweepResult, seconds float64) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
	m.sweepGroups.WithLabelValues("executed").Add(float64(res.DrawsExecuted))
	m.sweepGroups.WithLabelValues("failed").Add(float64(res.DrawsFailed))
	m.sweepGroups.WithLabelValues("skipped").Add(float64(res.GroupsSkipped))
}

// Notification records one delivery attempt. outcome is "sent", "muted"
// or "failed".
func (m *Metrics) Notification(channel, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}
