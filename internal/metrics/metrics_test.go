package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/sim"
)

func records() []sim.StepRecord {
	unit := kinematics.Pose{Orientation: mgl64.QuatIdent()}
	stretched := kinematics.Pose{Orientation: mgl64.Quat{W: 1.1}}
	return []sim.StepRecord{
		{Step: 0, ResidualNorm: 1e-9, Converged: true, Poses: kinematics.Poses{unit}},
		{Step: 1, ResidualNorm: 0.3, Iterations: 7, Converged: false, Poses: kinematics.Poses{unit, stretched}},
		{Step: 2, ResidualNorm: 1e-8, Iterations: 3, Converged: true, Poses: kinematics.Poses{unit}},
		{Step: 3, ResidualNorm: 2e-8, Iterations: 2, Converged: true, Poses: kinematics.Poses{unit}},
	}
}

func TestStandardMetrics(t *testing.T) {
	tests := []struct {
		metric sim.Metric
		want   float64
	}{
		{NewMaxResidual(), 0.3},
		{NewSolverIterations(), 12},
		{NewQuaternionDrift(), 0.21},
		{NewConvergenceRate(), 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			for _, rec := range records() {
				tt.metric.Observe(rec)
			}
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %g, got %g", tt.want, got)
			}
		})
	}
}

func TestMetricReset(t *testing.T) {
	for _, m := range Standard() {
		empty := m.Value()
		for _, rec := range records() {
			m.Observe(rec)
		}
		m.Reset()
		if got := m.Value(); got != empty {
			t.Errorf("%s: expected %g after reset, got %g", m.Name(), empty, got)
		}
	}
}

func TestStandardNames(t *testing.T) {
	want := []string{"max_residual", "solver_iterations", "quaternion_drift", "convergence_rate"}
	got := Standard()
	if len(got) != len(want) {
		t.Fatalf("expected %d metrics, got %d", len(want), len(got))
	}
	for i, m := range got {
		if m.Name() != want[i] {
			t.Errorf("metric %d: expected %q, got %q", i, want[i], m.Name())
		}
	}
}
