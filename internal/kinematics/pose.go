package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/spatial"
)

// Pose is a body's world position and scalar-first orientation.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Apply maps a local offset to world coordinates.
func (p Pose) Apply(offset mgl64.Vec3) mgl64.Vec3 {
	return p.Position.Add(spatial.Rotate(p.Orientation, offset))
}

// Poses is an arena of body poses addressed by body index.
type Poses []Pose

// Clone returns an independent copy.
func (p Poses) Clone() Poses {
	c := make(Poses, len(p))
	copy(c, p)
	return c
}

// FramePosition returns the world position of f under these poses. The frame
// must belong to a body registered in the system the poses were taken from.
func (p Poses) FramePosition(f *Frame) (mgl64.Vec3, error) {
	if f.body == nil {
		return mgl64.Vec3{}, ErrUnattachedFrame
	}
	idx := f.body.index
	if idx < 0 || idx >= len(p) {
		return mgl64.Vec3{}, ErrMalformedTopology
	}
	return p[idx].Apply(f.Offset), nil
}

// poseSource resolves the pose a joint should evaluate a body at.
type poseSource interface {
	pose(b *Body) Pose
}

// livePoses reads the bodies' own fields.
type livePoses struct{}

func (livePoses) pose(b *Body) Pose { return b.Pose() }

func (p Poses) pose(b *Body) Pose { return p[b.index] }
