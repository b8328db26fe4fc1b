// Package spatial holds the vector and quaternion conventions shared by the
// kinematics code.
//
// Quaternions are scalar-first everywhere they cross an API boundary: a
// packed orientation is [w, x, y, z] and mgl64.Quat.W is the real part.
// A packed pose is [px, py, pz, qw, qx, qy, qz].
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	Vec3Len = 3
	QuatLen = 4
	PoseLen = Vec3Len + QuatLen
)

// Identity is the scalar-first identity rotation.
var Identity = mgl64.QuatIdent()

// Rotate applies the rotation represented by q to v. The quaternion is
// normalized first, so only its direction matters; a zero quaternion leaves
// v unchanged.
func Rotate(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	n := q.Len()
	if n == 0 || math.IsNaN(n) {
		return v
	}
	if n != 1 {
		q = mgl64.Quat{W: q.W / n, V: q.V.Mul(1 / n)}
	}
	return q.Rotate(v)
}

// NormSquared returns q·q.
func NormSquared(q mgl64.Quat) float64 {
	return q.Dot(q)
}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
// The axis need not be normalized; a zero axis yields the identity.
func AxisAngle(axis mgl64.Vec3, angle float64) mgl64.Quat {
	l := axis.Len()
	if l == 0 {
		return Identity
	}
	return mgl64.QuatRotate(angle, axis.Mul(1/l))
}

// Angle returns the rotation angle of q in [0, π].
func Angle(q mgl64.Quat) float64 {
	n := q.Len()
	if n == 0 {
		return 0
	}
	w := math.Min(1, math.Abs(q.W)/n)
	return 2 * math.Acos(w)
}

func Vec3FromSlice(s []float64) mgl64.Vec3 {
	return mgl64.Vec3{s[0], s[1], s[2]}
}

// QuatFromSlice reads a scalar-first quaternion.
func QuatFromSlice(s []float64) mgl64.Quat {
	return mgl64.Quat{W: s[0], V: mgl64.Vec3{s[1], s[2], s[3]}}
}

func PutVec3(dst []float64, v mgl64.Vec3) {
	dst[0], dst[1], dst[2] = v[0], v[1], v[2]
}

// PutQuat writes q scalar-first.
func PutQuat(dst []float64, q mgl64.Quat) {
	dst[0], dst[1], dst[2], dst[3] = q.W, q.V[0], q.V[1], q.V[2]
}

// QuatSlice returns q as a fresh scalar-first slice.
func QuatSlice(q mgl64.Quat) []float64 {
	s := make([]float64, QuatLen)
	PutQuat(s, q)
	return s
}
