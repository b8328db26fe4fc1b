package kinematics

// SphericalJoint makes two frames coincide in space.
type SphericalJoint struct {
	pair
}

func NewSphericalJoint(name string, f1, f2 *Frame) (*SphericalJoint, error) {
	p, err := newPair(name, f1, f2)
	if err != nil {
		return nil, err
	}
	return &SphericalJoint{pair: p}, nil
}

func (j *SphericalJoint) Kind() Kind { return KindSpherical }
func (j *SphericalJoint) Dim() int   { return 3 }

func (j *SphericalJoint) Residual() []float64 { return liveResidual(j) }

func (j *SphericalJoint) residualInto(dst []float64, src poseSource) {
	p1, p2 := j.positions(src)
	d := p2.Sub(p1)
	dst[0], dst[1], dst[2] = d[0], d[1], d[2]
}
