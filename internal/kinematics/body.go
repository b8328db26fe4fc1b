package kinematics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/spatial"
)

// Role decides whether a body's pose is solved for, held, or prescribed.
type Role int

const (
	// Free bodies contribute seven unknowns to the solve.
	Free Role = iota
	// Fixed bodies keep whatever pose they were given.
	Fixed
	// Driven bodies take their pose from a motion function every step.
	Driven
)

func (r Role) String() string {
	switch r {
	case Free:
		return "free"
	case Fixed:
		return "fixed"
	case Driven:
		return "driven"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// MotionFunc prescribes a driven body's pose at a step. It must be pure:
// repeated calls with the same step return the same pose.
type MotionFunc func(step int) (mgl64.Vec3, mgl64.Quat)

// Body is a rigid body with a world pose and an ordered set of frames.
//
// Position and Orientation are the live state. Nothing stops a caller from
// writing a non-unit quaternion; the quaternion residual pulls it back during
// the next solve.
type Body struct {
	Name        string
	Position    mgl64.Vec3
	Orientation mgl64.Quat

	role   Role
	motion MotionFunc
	frames []*Frame

	sys   *System
	index int
}

// NewBody creates a free body.
func NewBody(name string, position mgl64.Vec3, orientation mgl64.Quat) *Body {
	return &Body{
		Name:        name,
		Position:    position,
		Orientation: orientation,
		role:        Free,
		index:       -1,
	}
}

// Fix removes the body from the solve and drops any motion function.
func (b *Body) Fix() error {
	return b.setRole(Fixed, nil)
}

// SetFree returns the body to the solver's unknowns and drops any motion function.
func (b *Body) SetFree() error {
	return b.setRole(Free, nil)
}

// SetMotion registers a motion function; the body is driven from then on.
// A nil function leaves the body fixed.
func (b *Body) SetMotion(fn MotionFunc) error {
	if fn == nil {
		return b.setRole(Fixed, nil)
	}
	return b.setRole(Driven, fn)
}

// setRole changes the role and motion together. Once the owning system is
// frozen the role is part of the pack order and may no longer change; a
// driven body may still swap its motion function.
func (b *Body) setRole(r Role, fn MotionFunc) error {
	if r != b.role && b.frozen() {
		return fmt.Errorf("body %q: %v to %v: %w", b.Name, b.role, r, ErrTopologyFrozen)
	}
	b.role = r
	b.motion = fn
	return nil
}

func (b *Body) frozen() bool {
	return b.sys != nil && b.sys.Frozen()
}

func (b *Body) Role() Role     { return b.role }
func (b *Body) IsFree() bool   { return b.role == Free }
func (b *Body) IsDriven() bool { return b.role == Driven }

// Motion returns the registered motion function, or nil.
func (b *Body) Motion() MotionFunc { return b.motion }

// Index returns the body's position in its system, or -1 before registration.
func (b *Body) Index() int { return b.index }

// AddFrame attaches frames to the body in order. A frame belongs to exactly
// one body; attaching it again fails with ErrMalformedTopology.
func (b *Body) AddFrame(frames ...*Frame) error {
	if b.frozen() {
		return fmt.Errorf("add frame to %q: %w", b.Name, ErrTopologyFrozen)
	}
	for _, f := range frames {
		if f == nil {
			return fmt.Errorf("add frame to %q: nil frame: %w", b.Name, ErrMalformedTopology)
		}
		if f.body != nil {
			return fmt.Errorf("frame %q already attached to body %q: %w", f.Name, f.body.Name, ErrMalformedTopology)
		}
		if _, ok := b.Frame(f.Name); ok {
			return fmt.Errorf("body %q already has a frame named %q: %w", b.Name, f.Name, ErrMalformedTopology)
		}
		f.body = b
		b.frames = append(b.frames, f)
	}
	return nil
}

// Frames returns the attached frames in attachment order.
func (b *Body) Frames() []*Frame {
	out := make([]*Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

func (b *Body) Frame(name string) (*Frame, bool) {
	for _, f := range b.frames {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (b *Body) Pose() Pose {
	return Pose{Position: b.Position, Orientation: b.Orientation}
}

func (b *Body) SetPose(p Pose) {
	b.Position = p.Position
	b.Orientation = p.Orientation
}

// QuaternionResidual returns q·q - 1.
func (b *Body) QuaternionResidual() float64 {
	return spatial.NormSquared(b.Orientation) - 1
}

// applyMotion overwrites the pose from the motion function, if any.
func (b *Body) applyMotion(step int) bool {
	if b.role != Driven || b.motion == nil {
		return false
	}
	b.Position, b.Orientation = b.motion(step)
	return true
}
