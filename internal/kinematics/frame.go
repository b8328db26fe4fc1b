package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Frame is a fixed offset in the local coordinates of the body that owns it.
// The owning body is set once, by [Body.AddFrame].
type Frame struct {
	Name   string
	Offset mgl64.Vec3

	// DesignVariable marks the offset as tunable by an outer optimizer.
	DesignVariable bool

	body *Body
}

func NewFrame(name string, offset mgl64.Vec3) *Frame {
	return &Frame{Name: name, Offset: offset}
}

// Body returns the owning body, or nil before attachment.
func (f *Frame) Body() *Body { return f.body }

// Attached reports whether the frame has an owning body.
func (f *Frame) Attached() bool { return f.body != nil }

// Path returns "body.frame", or the bare frame name when unattached.
func (f *Frame) Path() string {
	if f.body == nil {
		return f.Name
	}
	return f.body.Name + "." + f.Name
}

// GlobalPosition returns body.Position + rotate(body.Orientation, Offset).
func (f *Frame) GlobalPosition() (mgl64.Vec3, error) {
	if f.body == nil {
		return mgl64.Vec3{}, ErrUnattachedFrame
	}
	return f.body.Pose().Apply(f.Offset), nil
}

func (f *Frame) positionIn(src poseSource) mgl64.Vec3 {
	return src.pose(f.body).Apply(f.Offset)
}
