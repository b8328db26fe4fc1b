package solver

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidProblem indicates a problem with no residual function or a
// negative residual length.
var ErrInvalidProblem = errors.New("solver: invalid problem")

// Problem is a residual function with a fixed output length M. Residual
// writes R(x) into dst and must not modify x.
type Problem struct {
	Residual func(dst, x []float64)
	M        int
}

func (p Problem) validate() error {
	if p.Residual == nil {
		return fmt.Errorf("%w: nil residual function", ErrInvalidProblem)
	}
	if p.M < 0 {
		return fmt.Errorf("%w: residual length %d", ErrInvalidProblem, p.M)
	}
	return nil
}

// Status describes why a method stopped.
type Status int

const (
	NotTerminated Status = iota
	// Success means ‖R(x)‖ fell to Settings.Tolerance.
	Success
	SmallStep
	SmallGradient
	DampingLimit
	IterationLimit
	// Interrupted means the context was canceled or its deadline passed.
	Interrupted
	Failure
)

func (s Status) String() string {
	switch s {
	case NotTerminated:
		return "not terminated"
	case Success:
		return "success"
	case SmallStep:
		return "small step"
	case SmallGradient:
		return "small gradient"
	case DampingLimit:
		return "damping limit"
	case IterationLimit:
		return "iteration limit"
	case Interrupted:
		return "interrupted"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Settings controls termination and derivative evaluation.
type Settings struct {
	MaxIterations     int
	Tolerance         float64
	StepTolerance     float64
	GradientTolerance float64
	InitialDamping    float64

	// FiniteStep is the finite-difference step; zero selects the gonum default.
	FiniteStep float64
	Central    bool
	Concurrent bool
}

func DefaultSettings() Settings {
	return Settings{
		MaxIterations:     200,
		Tolerance:         1e-10,
		StepTolerance:     1e-15,
		GradientTolerance: 1e-15,
		InitialDamping:    1e-3,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.StepTolerance <= 0 {
		s.StepTolerance = d.StepTolerance
	}
	if s.GradientTolerance <= 0 {
		s.GradientTolerance = d.GradientTolerance
	}
	if s.InitialDamping <= 0 {
		s.InitialDamping = d.InitialDamping
	}
	return s
}

// Result is the best point a method found.
type Result struct {
	X           []float64
	Residual    []float64
	Norm        float64
	Iterations  int
	Evaluations int
	Status      Status
}

// Converged reports whether the method reached the residual tolerance.
func (r *Result) Converged() bool { return r.Status == Success }

// Method finds x minimizing ‖R(x)‖² starting from x0.
type Method interface {
	Name() string
	Minimize(ctx context.Context, p Problem, x0 []float64) (*Result, error)
}

// evaluate handles problems with nothing to optimize.
func evaluate(p Problem, x0 []float64, tol float64) *Result {
	x := append([]float64(nil), x0...)
	r := make([]float64, p.M)
	p.Residual(r, x)
	res := &Result{X: x, Residual: r, Norm: floats.Norm(r, 2), Evaluations: 1, Status: SmallStep}
	if res.Norm <= tol {
		res.Status = Success
	}
	return res
}
