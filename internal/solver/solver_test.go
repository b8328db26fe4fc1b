package solver

import (
	"context"
	"errors"
	"math"
	"testing"
)

func rosenbrock(dst, x []float64) {
	dst[0] = 10 * (x[1] - x[0]*x[0])
	dst[1] = 1 - x[0]
}

// overdetermined is four consistent linear equations in two unknowns with
// solution (2, -3).
func overdetermined(dst, x []float64) {
	dst[0] = x[0] + x[1] + 1
	dst[1] = x[0] - x[1] - 5
	dst[2] = 2*x[0] + x[1] - 1
	dst[3] = x[0] + 3*x[1] + 7
}

func methods(s Settings) []Method {
	return []Method{NewLevenbergMarquardt(s), NewBFGS(s)}
}

func TestLevenbergMarquardt_Rosenbrock(t *testing.T) {
	lm := NewLevenbergMarquardt(DefaultSettings())
	res, err := lm.Minimize(context.Background(), Problem{Residual: rosenbrock, M: 2}, []float64{-1.2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != Success {
		t.Fatalf("expected success, got %v (norm %g)", res.Status, res.Norm)
	}
	if math.Abs(res.X[0]-1) > 1e-6 || math.Abs(res.X[1]-1) > 1e-6 {
		t.Errorf("expected (1, 1), got %v", res.X)
	}
	if res.Iterations == 0 || res.Evaluations <= res.Iterations {
		t.Errorf("expected iterations and evaluations to be counted, got %d and %d", res.Iterations, res.Evaluations)
	}
}

func TestMethods_Overdetermined(t *testing.T) {
	s := DefaultSettings()
	s.Tolerance = 1e-7
	s.Central = true
	for _, m := range methods(s) {
		t.Run(m.Name(), func(t *testing.T) {
			res, err := m.Minimize(context.Background(), Problem{Residual: overdetermined, M: 4}, []float64{0, 0})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Converged() {
				t.Fatalf("expected convergence, got %v (norm %g)", res.Status, res.Norm)
			}
			if math.Abs(res.X[0]-2) > 1e-5 || math.Abs(res.X[1]+3) > 1e-5 {
				t.Errorf("expected (2, -3), got %v", res.X)
			}
		})
	}
}

func TestLevenbergMarquardt_AlreadySolved(t *testing.T) {
	lm := NewLevenbergMarquardt(DefaultSettings())
	res, err := lm.Minimize(context.Background(), Problem{Residual: rosenbrock, M: 2}, []float64{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != Success || res.Iterations != 0 || res.Evaluations != 1 {
		t.Errorf("expected immediate success, got %v after %d iterations and %d evaluations",
			res.Status, res.Iterations, res.Evaluations)
	}
}

func TestMethods_NoUnknowns(t *testing.T) {
	for _, m := range methods(DefaultSettings()) {
		t.Run(m.Name(), func(t *testing.T) {
			p := Problem{Residual: func(dst, x []float64) { dst[0] = 0.5 }, M: 1}
			res, err := m.Minimize(context.Background(), p, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Converged() {
				t.Error("expected a constant nonzero residual to not converge")
			}
			if res.Norm != 0.5 {
				t.Errorf("expected norm 0.5, got %g", res.Norm)
			}

			p.Residual = func(dst, x []float64) { dst[0] = 0 }
			res, _ = m.Minimize(context.Background(), p, nil)
			if !res.Converged() {
				t.Errorf("expected a zero residual to converge, got %v", res.Status)
			}
		})
	}
}

func TestMethods_InvalidProblem(t *testing.T) {
	tests := []struct {
		name string
		p    Problem
	}{
		{"nil residual", Problem{M: 1}},
		{"negative length", Problem{Residual: rosenbrock, M: -1}},
	}
	for _, m := range methods(DefaultSettings()) {
		for _, tt := range tests {
			t.Run(m.Name()+"/"+tt.name, func(t *testing.T) {
				_, err := m.Minimize(context.Background(), tt.p, []float64{0, 0})
				if !errors.Is(err, ErrInvalidProblem) {
					t.Errorf("expected ErrInvalidProblem, got %v", err)
				}
			})
		}
	}
}

func TestMethods_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, m := range methods(DefaultSettings()) {
		t.Run(m.Name(), func(t *testing.T) {
			res, err := m.Minimize(ctx, Problem{Residual: rosenbrock, M: 2}, []float64{-1.2, 1})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
			if res != nil && res.Status != Interrupted {
				t.Errorf("expected interrupted status, got %v", res.Status)
			}
		})
	}
}

func TestLevenbergMarquardt_IterationLimit(t *testing.T) {
	s := DefaultSettings()
	s.MaxIterations = 1
	res, err := NewLevenbergMarquardt(s).Minimize(context.Background(), Problem{Residual: rosenbrock, M: 2}, []float64{-1.2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != IterationLimit {
		t.Errorf("expected iteration limit, got %v", res.Status)
	}
	if res.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", res.Iterations)
	}
}

func TestLevenbergMarquardt_DoesNotModifyGuess(t *testing.T) {
	x0 := []float64{-1.2, 1}
	_, err := NewLevenbergMarquardt(DefaultSettings()).Minimize(context.Background(), Problem{Residual: rosenbrock, M: 2}, x0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x0[0] != -1.2 || x0[1] != 1 {
		t.Errorf("expected x0 unchanged, got %v", x0)
	}
}

func TestLevenbergMarquardt_ConcurrentMatchesSerial(t *testing.T) {
	serial := DefaultSettings()
	concurrent := serial
	concurrent.Concurrent = true

	a, err := NewLevenbergMarquardt(serial).Minimize(context.Background(), Problem{Residual: overdetermined, M: 4}, []float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewLevenbergMarquardt(concurrent).Minimize(context.Background(), Problem{Residual: overdetermined, M: 4}, []float64{0, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.X {
		if a.X[i] != b.X[i] {
			t.Errorf("x[%d]: serial %g, concurrent %g", i, a.X[i], b.X[i])
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Success, "success"},
		{DampingLimit, "damping limit"},
		{Interrupted, "interrupted"},
		{Status(42), "status(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
