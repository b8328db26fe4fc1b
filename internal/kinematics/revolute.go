package kinematics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJoint makes two frames coincide and restricts both bodies'
// orientations to rotations about a shared world axis.
//
// A rotation about axis a has a quaternion vector part parallel to a, so the
// ratios x/ax, y/ay and z/az agree. The rotational residual is the three
// pairwise differences of those ratios, once per body. Every axis component
// must therefore be nonzero.
type RevoluteJoint struct {
	pair
	axis mgl64.Vec3
}

func NewRevoluteJoint(name string, f1, f2 *Frame, axis mgl64.Vec3) (*RevoluteJoint, error) {
	for i, c := range axis {
		if c == 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("joint %q: component %d of %v: %w", name, i, axis, ErrDegenerateAxis)
		}
	}
	p, err := newPair(name, f1, f2)
	if err != nil {
		return nil, err
	}
	return &RevoluteJoint{pair: p, axis: axis}, nil
}

func (j *RevoluteJoint) Kind() Kind       { return KindRevolute }
func (j *RevoluteJoint) Dim() int         { return 9 }
func (j *RevoluteJoint) Axis() mgl64.Vec3 { return j.axis }

func (j *RevoluteJoint) Residual() []float64 { return liveResidual(j) }

func (j *RevoluteJoint) residualInto(dst []float64, src poseSource) {
	p1, p2 := j.positions(src)
	d := p2.Sub(p1)
	dst[0], dst[1], dst[2] = d[0], d[1], d[2]

	j.ratios(dst[3:6], src.pose(j.f1.body).Orientation)
	j.ratios(dst[6:9], src.pose(j.f2.body).Orientation)
}

func (j *RevoluteJoint) ratios(dst []float64, q mgl64.Quat) {
	rx := q.V[0] / j.axis[0]
	ry := q.V[1] / j.axis[1]
	rz := q.V[2] / j.axis[2]
	dst[0] = rx - ry
	dst[1] = ry - rz
	dst[2] = rz - rx
}
