package metrics

import (
	"math"

	"github.com/san-kum/kinsim/internal/sim"
	"github.com/san-kum/kinsim/internal/spatial"
)

// QuaternionDrift is the largest |q·q − 1| over every body and record.
type QuaternionDrift struct {
	name     string
	maxDrift float64
}

func NewQuaternionDrift() *QuaternionDrift {
	return &QuaternionDrift{name: "quaternion_drift"}
}

func (q *QuaternionDrift) Name() string { return q.name }

func (q *QuaternionDrift) Observe(rec sim.StepRecord) {
	for _, p := range rec.Poses {
		d := math.Abs(spatial.NormSquared(p.Orientation) - 1)
		if d > q.maxDrift {
			q.maxDrift = d
		}
	}
}

func (q *QuaternionDrift) Value() float64 { return q.maxDrift }

func (q *QuaternionDrift) Reset() { q.maxDrift = 0 }

// Standard returns the metrics every run reports.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewMaxResidual(),
		NewSolverIterations(),
		NewQuaternionDrift(),
		NewConvergenceRate(),
	}
}
