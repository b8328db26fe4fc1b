// Package solver implements nonlinear least squares for residual functions
// R: ℝⁿ → ℝᵐ.
//
// A [Method] takes a [Problem] and an initial guess and returns the best x it
// found together with a [Status]. Failing to converge is reported through the
// status, not as an error; errors are reserved for malformed problems and
// context cancellation.
//
//   - [LevenbergMarquardt]: damped Gauss-Newton with finite-difference
//     Jacobians from gonum/diff/fd and normal equations on gonum/mat
//   - [BFGS]: quasi-Newton minimization of ½‖R‖² through gonum/optimize
//
// # Concurrency
//
// With Settings.Concurrent set, Jacobian and gradient columns are evaluated
// in parallel, so Problem.Residual must be safe for concurrent use.
package solver
