package kinematics

import (
	"fmt"
	"strings"
)

// Axis selects a world axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAxis, s)
}

// CartesianJoint locks one world-axis component of two frames together and
// leaves the other two free.
type CartesianJoint struct {
	pair
	axis Axis
}

func NewCartesianJoint(name string, f1, f2 *Frame, axis Axis) (*CartesianJoint, error) {
	if axis < AxisX || axis > AxisZ {
		return nil, fmt.Errorf("joint %q: %w: %d", name, ErrInvalidAxis, int(axis))
	}
	p, err := newPair(name, f1, f2)
	if err != nil {
		return nil, err
	}
	return &CartesianJoint{pair: p, axis: axis}, nil
}

func (j *CartesianJoint) Kind() Kind { return KindCartesian }
func (j *CartesianJoint) Dim() int   { return 1 }
func (j *CartesianJoint) Axis() Axis { return j.axis }

func (j *CartesianJoint) Residual() []float64 { return liveResidual(j) }

func (j *CartesianJoint) residualInto(dst []float64, src poseSource) {
	p1, p2 := j.positions(src)
	dst[0] = p2[j.axis] - p1[j.axis]
}
