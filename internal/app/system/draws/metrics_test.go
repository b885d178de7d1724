package draws

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDraw("manual", nil, 0.1)
	m.ObserveSweep(SweepResult{DrawsExecuted: 1}, 0.1)
	m.Notification("email", "sent")

	unregistered := &Metrics{}
	unregistered.ObserveDraw("manual", nil, 0.1)
}

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Register(reg) // second call is a no-op

	m.ObserveDraw("manual", nil, 0.01)
	m.ObserveDraw("scheduled", ErrConstraintInfeasible, 0.01)
	m.ObserveDraw("scheduled", errors.New("boom"), 0.01)
	m.ObserveSweep(SweepResult{GroupsChecked: 4, DrawsExecuted: 2, DrawsFailed: 1, GroupsSkipped: 1}, 1)
	m.Notification("in_app", "sent")
	m.Notification("email", "muted")

	if got := promtest.ToFloat64(m.draws.WithLabelValues("success", "manual")); got != 1 {
		t.Errorf("success count = %v", got)
	}
	if got := promtest.ToFloat64(m.draws.WithLabelValues(string(KindConstraintInfeasible), "scheduled")); got != 1 {
		t.Errorf("infeasible count = %v", got)
	}
	if got := promtest.ToFloat64(m.draws.WithLabelValues(string(KindPersistence), "scheduled")); got != 1 {
		t.Errorf("persistence count = %v", got)
	}
	if got := promtest.ToFloat64(m.sweepGroups.WithLabelValues("skipped")); got != 1 {
		t.Errorf("skipped count = %v", got)
	}
	if got := promtest.ToFloat64(m.notifications.WithLabelValues("email", "muted")); got != 1 {
		t.Errorf("muted email count = %v", got)
	}
}
