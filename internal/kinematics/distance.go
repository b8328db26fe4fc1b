package kinematics

import (
	"fmt"
	"math"
)

// DistanceJoint holds two frames at a fixed separation, like a rigid link
// with ball ends.
type DistanceJoint struct {
	pair
	length float64
}

// NewDistanceJoint captures the length from the frames' current world positions.
func NewDistanceJoint(name string, f1, f2 *Frame) (*DistanceJoint, error) {
	p, err := newPair(name, f1, f2)
	if err != nil {
		return nil, err
	}
	p1, p2 := p.positions(livePoses{})
	return &DistanceJoint{pair: p, length: p2.Sub(p1).Len()}, nil
}

func NewDistanceJointLength(name string, f1, f2 *Frame, length float64) (*DistanceJoint, error) {
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil, fmt.Errorf("joint %q: %w: %v", name, ErrInvalidLength, length)
	}
	p, err := newPair(name, f1, f2)
	if err != nil {
		return nil, err
	}
	return &DistanceJoint{pair: p, length: length}, nil
}

func (j *DistanceJoint) Kind() Kind      { return KindDistance }
func (j *DistanceJoint) Dim() int        { return 1 }
func (j *DistanceJoint) Length() float64 { return j.length }

func (j *DistanceJoint) Residual() []float64 { return liveResidual(j) }

func (j *DistanceJoint) residualInto(dst []float64, src poseSource) {
	p1, p2 := j.positions(src)
	dst[0] = p2.Sub(p1).Len() - j.length
}
