package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/solver"
	"gonum.org/v1/gonum/floats"
)

// Simulator steps a kinematic system through its prescribed motion, solving
// for the free bodies at every step from the previous step's solution.
type Simulator struct {
	method    solver.Method
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
}

func New(method solver.Method) *Simulator {
	return &Simulator{
		method:    method,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)      { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)  { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *log.Logger) { s.logger = l }
func (s *Simulator) Method() solver.Method   { return s.method }
func (s *Simulator) Metrics() []Metric       { return s.metrics }

// Solve runs steps steps with the default config and a Levenberg-Marquardt
// solver.
func Solve(ctx context.Context, sys *kinematics.System, steps int) (*History, error) {
	cfg := DefaultConfig()
	cfg.Steps = steps
	return New(solver.NewLevenbergMarquardt(cfg.SolverSettings())).Run(ctx, sys, cfg)
}

// Run freezes the topology of sys, records the initial state as step 0 and
// solves steps 1..cfg.Steps. The returned history holds every committed
// record even when an error is returned.
func (s *Simulator) Run(ctx context.Context, sys *kinematics.System, cfg Config) (*History, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", ErrInvalidConfig)
	}
	sys.Freeze()

	for _, m := range s.metrics {
		m.Reset()
	}

	h := &History{Records: make([]StepRecord, 0, cfg.Steps+1)}

	var (
		rec StepRecord
		err error
	)
	if cfg.AssembleInitial {
		rec, err = s.step(ctx, sys, cfg, 0)
	} else {
		rec = s.baseline(sys, cfg)
		if !rec.Converged {
			s.logf("step 0: initial residual norm %.3g above tolerance %.3g", rec.ResidualNorm, cfg.Tolerance)
		}
	}
	if err != nil {
		return h, err
	}
	s.commit(h, rec)

	for i := 1; i <= cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return h, ctx.Err()
		default:
		}

		rec, err := s.step(ctx, sys, cfg, i)
		if err != nil {
			return h, err
		}
		s.commit(h, rec)
	}

	return h, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.method == nil {
		return fmt.Errorf("%w: no solver method", ErrInvalidConfig)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if cfg.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, cfg.Tolerance)
	}
	if cfg.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be non-negative, got %d", ErrInvalidConfig, cfg.MaxIterations)
	}
	if cfg.StepTimeout < 0 {
		return fmt.Errorf("%w: step timeout must be non-negative, got %s", ErrInvalidConfig, cfg.StepTimeout)
	}
	return nil
}

func (s *Simulator) baseline(sys *kinematics.System, cfg Config) StepRecord {
	norm := floats.Norm(sys.Residual(), 2)
	return StepRecord{
		Step:         0,
		X:            sys.Pack(),
		Poses:        sys.Snapshot(),
		ResidualNorm: norm,
		Evaluations:  1,
		Status:       solver.NotTerminated,
		Converged:    norm <= cfg.Tolerance,
	}
}

// step drives the bodies, solves and either commits the solution or restores
// the state the step started from.
func (s *Simulator) step(ctx context.Context, sys *kinematics.System, cfg Config, i int) (StepRecord, error) {
	start := time.Now()
	prev := sys.Snapshot()
	if i > 0 {
		sys.Drive(i)
	}

	x0 := sys.Pack()
	objective := sys.Objective()
	m := sys.ResidualDim()

	stepCtx := ctx
	if cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, cfg.StepTimeout)
		defer cancel()
	}

	res, err := s.method.Minimize(stepCtx, solver.Problem{Residual: objective, M: m}, x0)
	if err != nil {
		if ctx.Err() != nil {
			_ = sys.Restore(prev)
			return StepRecord{}, ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			_ = sys.Restore(prev)
			return StepRecord{}, &StepError{Step: i, Tolerance: cfg.Tolerance, Wrapped: err}
		}
		s.logf("step %d: solve exceeded %s", i, cfg.StepTimeout)
	}

	x := x0
	rec := StepRecord{Step: i, Status: solver.Interrupted}
	if res != nil {
		x = res.X
		rec.Iterations = res.Iterations
		rec.Evaluations = res.Evaluations
		rec.Status = res.Status
	}

	r := make([]float64, m)
	objective(r, x)
	rec.ResidualNorm = floats.Norm(r, 2)
	rec.Converged = rec.ResidualNorm <= cfg.Tolerance
	rec.Elapsed = time.Since(start)

	if !rec.Converged && !cfg.Lenient {
		_ = sys.Restore(prev)
		return rec, &StepError{
			Step:      i,
			Norm:      rec.ResidualNorm,
			Tolerance: cfg.Tolerance,
			Status:    rec.Status,
			Wrapped:   ErrNonConvergence,
		}
	}
	if err := sys.Unpack(x); err != nil {
		_ = sys.Restore(prev)
		return rec, &StepError{Step: i, Wrapped: err}
	}

	rec.X = append([]float64(nil), x...)
	rec.Poses = sys.Snapshot()
	return rec, nil
}

func (s *Simulator) commit(h *History, rec StepRecord) {
	h.Records = append(h.Records, rec)
	for _, m := range s.metrics {
		m.Observe(rec)
	}
	for _, o := range s.observers {
		o.OnStep(rec)
	}
	if rec.Step > 0 {
		s.logf("step %d: norm=%.3g iterations=%d status=%s converged=%t",
			rec.Step, rec.ResidualNorm, rec.Iterations, rec.Status, rec.Converged)
	}
}

func (s *Simulator) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
