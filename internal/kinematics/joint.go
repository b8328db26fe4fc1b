package kinematics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind enumerates the joint variants.
type Kind int

const (
	KindSpherical Kind = iota
	KindCartesian
	KindRevolute
	KindDistance
)

func (k Kind) String() string {
	switch k {
	case KindSpherical:
		return "spherical"
	case KindCartesian:
		return "cartesian"
	case KindRevolute:
		return "revolute"
	case KindDistance:
		return "distance"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Joint constrains two frames. Its residual has a fixed length, Dim, and is
// zero exactly when the constraint holds.
//
// The set of implementations is closed: SphericalJoint, CartesianJoint,
// RevoluteJoint and DistanceJoint.
type Joint interface {
	Name() string
	Kind() Kind
	Frames() (*Frame, *Frame)
	Dim() int

	// Residual evaluates the constraint at the bodies' live poses.
	Residual() []float64

	residualInto(dst []float64, src poseSource)
}

// pair is the frame pair shared by every joint variant.
type pair struct {
	name string
	f1   *Frame
	f2   *Frame
}

func newPair(name string, f1, f2 *Frame) (pair, error) {
	if f1 == nil || f2 == nil {
		return pair{}, fmt.Errorf("joint %q: nil frame: %w", name, ErrMalformedTopology)
	}
	if !f1.Attached() {
		return pair{}, fmt.Errorf("joint %q: frame %q: %w", name, f1.Name, ErrUnattachedFrame)
	}
	if !f2.Attached() {
		return pair{}, fmt.Errorf("joint %q: frame %q: %w", name, f2.Name, ErrUnattachedFrame)
	}
	if f1 == f2 {
		return pair{}, fmt.Errorf("joint %q: frame %q joined to itself: %w", name, f1.Path(), ErrMalformedTopology)
	}
	return pair{name: name, f1: f1, f2: f2}, nil
}

func (p pair) Name() string             { return p.name }
func (p pair) Frames() (*Frame, *Frame) { return p.f1, p.f2 }

func (p pair) positions(src poseSource) (mgl64.Vec3, mgl64.Vec3) {
	return p.f1.positionIn(src), p.f2.positionIn(src)
}

func liveResidual(j Joint) []float64 {
	r := make([]float64, j.Dim())
	j.residualInto(r, livePoses{})
	return r
}
