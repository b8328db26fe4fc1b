package kinematics

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and state access.
var (
	// ErrUnattachedFrame indicates a frame queried or joined before it was added to a body.
	ErrUnattachedFrame = errors.New("kinematics: frame is not attached to a body")

	// ErrDimensionMismatch indicates a state vector whose length does not match the free bodies.
	ErrDimensionMismatch = errors.New("kinematics: state vector dimension mismatch")

	// ErrDegenerateAxis indicates a revolute axis with a zero component.
	ErrDegenerateAxis = errors.New("kinematics: degenerate axis of rotation")

	// ErrMalformedTopology indicates a body, frame or joint that cannot be placed in the system.
	ErrMalformedTopology = errors.New("kinematics: malformed topology")

	// ErrTopologyFrozen indicates a topology change after simulation started.
	ErrTopologyFrozen = errors.New("kinematics: topology is frozen")

	// ErrInvalidAxis indicates a cartesian axis index outside x, y, z.
	ErrInvalidAxis = errors.New("kinematics: invalid cartesian axis")

	// ErrInvalidLength indicates a negative or non-finite distance.
	ErrInvalidLength = errors.New("kinematics: invalid joint length")
)

// DimensionError reports the expected and received state vector lengths.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: want %d values, got %d", ErrDimensionMismatch, e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}
