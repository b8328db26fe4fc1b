package sim

import (
	"time"

	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/solver"
)

// StepRecord is one entry of a run's history.
type StepRecord struct {
	Step int
	// X is the packed free-body state after the step.
	X            []float64
	Poses        kinematics.Poses
	ResidualNorm float64
	Iterations   int
	Evaluations  int
	Status       solver.Status
	Converged    bool
	Elapsed      time.Duration
}

type Metric interface {
	Name() string
	Observe(rec StepRecord)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(rec StepRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec StepRecord)

func (f ObserverFunc) OnStep(rec StepRecord) { f(rec) }

type Config struct {
	Steps int
	// Tolerance is the residual norm a step must reach to count as converged.
	Tolerance     float64
	MaxIterations int
	// StepTimeout bounds the wall time of one solve; zero means no limit.
	StepTimeout time.Duration
	// Lenient commits non-converged steps instead of halting.
	Lenient bool
	// AssembleInitial solves step 0 instead of recording the initial state as is.
	AssembleInitial bool
	Concurrent      bool
}

func DefaultConfig() Config {
	return Config{
		Steps:         0,
		Tolerance:     1e-6,
		MaxIterations: 200,
	}
}

// SolverSettings derives solver settings that stop well inside Tolerance.
func (c Config) SolverSettings() solver.Settings {
	s := solver.DefaultSettings()
	if c.MaxIterations > 0 {
		s.MaxIterations = c.MaxIterations
	}
	if c.Tolerance > 0 {
		s.Tolerance = c.Tolerance * 1e-3
	}
	s.Concurrent = c.Concurrent
	return s
}
