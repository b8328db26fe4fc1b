package metrics

import (
	"math"

	"github.com/san-kum/kinsim/internal/sim"
)

// MaxResidual is the largest residual norm seen in a run.
type MaxResidual struct {
	name string
	max  float64
}

func NewMaxResidual() *MaxResidual {
	return &MaxResidual{name: "max_residual"}
}

func (m *MaxResidual) Name() string { return m.name }

func (m *MaxResidual) Observe(rec sim.StepRecord) {
	m.max = math.Max(m.max, rec.ResidualNorm)
}

func (m *MaxResidual) Value() float64 { return m.max }

func (m *MaxResidual) Reset() { m.max = 0 }

// SolverIterations totals solver iterations over a run.
type SolverIterations struct {
	name  string
	total int
}

func NewSolverIterations() *SolverIterations {
	return &SolverIterations{name: "solver_iterations"}
}

func (s *SolverIterations) Name() string { return s.name }

func (s *SolverIterations) Observe(rec sim.StepRecord) {
	s.total += rec.Iterations
}

func (s *SolverIterations) Value() float64 { return float64(s.total) }

func (s *SolverIterations) Reset() { s.total = 0 }
