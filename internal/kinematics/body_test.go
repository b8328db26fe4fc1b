package kinematics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestQuaternionResidual(t *testing.T) {
	tests := []struct {
		name     string
		q        mgl64.Quat
		expected float64
	}{
		{"identity", mgl64.Quat{W: 1}, 0},
		{"unit half", mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, 0.5, 0.5}}, 0},
		{"unnormalized", mgl64.Quat{W: 1, V: mgl64.Vec3{1, 0, 0}}, 1},
		{"zero", mgl64.Quat{}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBody("b", mgl64.Vec3{}, tt.q)
			if got := b.QuaternionResidual(); math.Abs(got-tt.expected) > 1e-15 {
				t.Errorf("QuaternionResidual() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBodyRoles(t *testing.T) {
	b := NewBody("b", mgl64.Vec3{}, mgl64.QuatIdent())
	if !b.IsFree() {
		t.Fatal("new body should be free")
	}

	err := b.SetMotion(func(step int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{0, 0, float64(step)}, mgl64.QuatIdent()
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.IsFree() || !b.IsDriven() {
		t.Errorf("expected driven body, got %v", b.Role())
	}

	if err := b.SetMotion(nil); err != nil {
		t.Fatal(err)
	}
	if b.Role() != Fixed || b.Motion() != nil {
		t.Errorf("expected fixed body without motion, got %v", b.Role())
	}

	if err := b.SetFree(); err != nil {
		t.Fatal(err)
	}
	if !b.IsFree() {
		t.Errorf("expected free body, got %v", b.Role())
	}
}

func TestBodyApplyMotion(t *testing.T) {
	b := NewBody("b", mgl64.Vec3{}, mgl64.QuatIdent())
	if b.applyMotion(3) {
		t.Error("free body should not move")
	}

	err := b.SetMotion(func(step int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{0, 0, 0.1 * float64(step)}, mgl64.QuatIdent()
	})
	if err != nil {
		t.Fatal(err)
	}
	if !b.applyMotion(3) {
		t.Fatal("driven body should move")
	}
	if math.Abs(b.Position.Z()-0.3) > 1e-12 {
		t.Errorf("expected z 0.3, got %f", b.Position.Z())
	}
}

func TestRoleString(t *testing.T) {
	if Free.String() != "free" || Fixed.String() != "fixed" || Driven.String() != "driven" {
		t.Error("unexpected role names")
	}
}
