package solver

import (
	"context"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// BFGS minimizes ½‖R(x)‖² with gonum's quasi-Newton method. It is slower to
// reach tight tolerances than LevenbergMarquardt and is kept as a cross-check.
type BFGS struct {
	Settings Settings
}

func NewBFGS(s Settings) *BFGS {
	return &BFGS{Settings: s}
}

func (b *BFGS) Name() string { return "bfgs" }

func (b *BFGS) Minimize(ctx context.Context, p Problem, x0 []float64) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	s := b.Settings.withDefaults()
	if len(x0) == 0 || p.M == 0 {
		return evaluate(p, x0, s.Tolerance), nil
	}

	cost := func(x []float64) float64 {
		r := make([]float64, p.M)
		p.Residual(r, x)
		return 0.5 * floats.Dot(r, r)
	}
	formula := fd.Forward
	if s.Central {
		formula = fd.Central
	}
	problem := optimize.Problem{
		Func: cost,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, cost, x, &fd.Settings{
				Formula:    formula,
				Step:       s.FiniteStep,
				Concurrent: s.Concurrent,
			})
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   s.MaxIterations,
		GradientThreshold: s.GradientTolerance,
		Converger:         &costThreshold{limit: 0.5 * s.Tolerance * s.Tolerance},
		Recorder:          &contextRecorder{ctx: ctx},
	}

	out, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if out == nil {
		return nil, err
	}

	res := &Result{
		X:           out.X,
		Residual:    make([]float64, p.M),
		Iterations:  out.Stats.MajorIterations,
		Evaluations: out.Stats.FuncEvaluations + 1,
	}
	p.Residual(res.Residual, res.X)
	res.Norm = floats.Norm(res.Residual, 2)

	if cerr := ctx.Err(); cerr != nil {
		res.Status = Interrupted
		return res, cerr
	}
	switch {
	case res.Norm <= s.Tolerance:
		res.Status = Success
	case out.Status == optimize.IterationLimit:
		res.Status = IterationLimit
	case out.Status == optimize.GradientThreshold:
		res.Status = SmallGradient
	case err != nil:
		res.Status = Failure
	default:
		res.Status = SmallStep
	}
	return res, nil
}

// costThreshold stops the optimizer once ½‖R‖² reaches limit.
type costThreshold struct {
	limit float64
}

func (c *costThreshold) Init(dim int) {}

func (c *costThreshold) Converged(loc *optimize.Location) optimize.Status {
	if loc.F <= c.limit {
		return optimize.FunctionThreshold
	}
	return optimize.NotTerminated
}

// contextRecorder aborts the optimizer when ctx is done.
type contextRecorder struct {
	ctx context.Context
}

func (r *contextRecorder) Init() error { return r.ctx.Err() }

func (r *contextRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}
