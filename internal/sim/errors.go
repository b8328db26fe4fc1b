package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/kinsim/internal/solver"
)

var (
	// ErrNonConvergence indicates a step whose residual norm stayed above tolerance.
	ErrNonConvergence = errors.New("sim: solve did not converge")

	ErrInvalidConfig = errors.New("sim: invalid config")
)

// StepError wraps a failure with the step it happened at.
type StepError struct {
	Step      int
	Norm      float64
	Tolerance float64
	Status    solver.Status
	Wrapped   error
}

func (e *StepError) Error() string {
	if errors.Is(e.Wrapped, ErrNonConvergence) {
		return fmt.Sprintf("step %d: residual norm %.3g above tolerance %.3g (%s): %v",
			e.Step, e.Norm, e.Tolerance, e.Status, e.Wrapped)
	}
	return fmt.Sprintf("step %d: %v", e.Step, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
