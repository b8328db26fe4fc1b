package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	maxDamping  = 1e16
	minDiagonal = 1e-12
)

// LevenbergMarquardt solves the damped normal equations
// (JᵀJ + λ·diag(JᵀJ)) δ = -Jᵀr, shrinking λ after every accepted step and
// growing it after every rejected one.
type LevenbergMarquardt struct {
	Settings Settings
}

func NewLevenbergMarquardt(s Settings) *LevenbergMarquardt {
	return &LevenbergMarquardt{Settings: s}
}

func (lm *LevenbergMarquardt) Name() string { return "lm" }

func (lm *LevenbergMarquardt) Minimize(ctx context.Context, p Problem, x0 []float64) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	s := lm.Settings.withDefaults()
	n, m := len(x0), p.M
	if n == 0 || m == 0 {
		return evaluate(p, x0, s.Tolerance), nil
	}

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	p.Residual(r, x)
	res := &Result{X: x, Residual: r, Norm: floats.Norm(r, 2), Evaluations: 1}

	jacSettings := &fd.JacobianSettings{
		Formula:    fd.Forward,
		Step:       s.FiniteStep,
		Concurrent: s.Concurrent,
	}
	perJacobian := n
	if s.Central {
		jacSettings.Formula = fd.Central
		perJacobian = 2 * n
	}

	var (
		jac   = mat.NewDense(m, n, nil)
		jtj   = mat.NewSymDense(n, nil)
		aug   = mat.NewSymDense(n, nil)
		grad  = mat.NewVecDense(n, nil)
		delta = mat.NewVecDense(n, nil)
		chol  mat.Cholesky

		trial  = make([]float64, n)
		trialR = make([]float64, m)
		lambda = s.InitialDamping
	)

	for {
		if res.Norm <= s.Tolerance {
			res.Status = Success
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			res.Status = Interrupted
			return res, err
		}
		if res.Iterations >= s.MaxIterations {
			res.Status = IterationLimit
			return res, nil
		}
		res.Iterations++

		if !s.Central {
			jacSettings.OriginValue = res.Residual
		}
		fd.Jacobian(jac, p.Residual, res.X, jacSettings)
		res.Evaluations += perJacobian

		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(m, res.Residual))
		if mat.Norm(grad, math.Inf(1)) <= s.GradientTolerance {
			res.Status = SmallGradient
			return res, nil
		}

		accepted := false
		for !accepted {
			if lambda > maxDamping {
				res.Status = DampingLimit
				return res, nil
			}

			aug.CopySym(jtj)
			for i := 0; i < n; i++ {
				d := jtj.At(i, i)
				aug.SetSym(i, i, d+lambda*math.Max(d, minDiagonal))
			}
			if ok := chol.Factorize(aug); !ok {
				lambda *= 10
				continue
			}
			if err := chol.SolveVecTo(delta, grad); err != nil {
				lambda *= 10
				continue
			}

			floats.SubTo(trial, res.X, delta.RawVector().Data)
			p.Residual(trialR, trial)
			res.Evaluations++

			norm := floats.Norm(trialR, 2)
			if norm < res.Norm && !math.IsNaN(norm) {
				accepted = true
				stepLen := floats.Norm(delta.RawVector().Data, 2)
				copy(res.X, trial)
				copy(res.Residual, trialR)
				res.Norm = norm
				lambda = math.Max(lambda/10, 1e-12)

				if res.Norm > s.Tolerance && stepLen <= s.StepTolerance*(floats.Norm(res.X, 2)+s.StepTolerance) {
					res.Status = SmallStep
					return res, nil
				}
			} else {
				lambda *= 10
			}
		}
	}
}
