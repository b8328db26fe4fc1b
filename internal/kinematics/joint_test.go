package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/spatial"
)

func bodyWithFrame(name string, pos, offset mgl64.Vec3) (*Body, *Frame) {
	b := NewBody(name, pos, spatial.Identity)
	f := NewFrame("f", offset)
	if err := b.AddFrame(f); err != nil {
		panic(err)
	}
	return b, f
}

func TestSphericalJoint_Coincident(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 2, 3})
	_, f2 := bodyWithFrame("b", mgl64.Vec3{2, 2, 3}, mgl64.Vec3{})

	j, err := NewSphericalJoint("s", f1, f2)
	if err != nil {
		t.Fatalf("new joint failed: %v", err)
	}

	r := j.Residual()
	if len(r) != 3 || r[0] != 0 || r[1] != 0 || r[2] != 0 {
		t.Errorf("expected zero residual, got %v", r)
	}
}

func TestSphericalJoint_Offset(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	b2, f2 := bodyWithFrame("b", mgl64.Vec3{1, -2, 0.5}, mgl64.Vec3{})

	j, err := NewSphericalJoint("s", f1, f2)
	if err != nil {
		t.Fatalf("new joint failed: %v", err)
	}

	r := j.Residual()
	if r[0] != 1 || r[1] != -2 || r[2] != 0.5 {
		t.Errorf("expected (1,-2,0.5), got %v", r)
	}

	b2.Position = mgl64.Vec3{}
	r = j.Residual()
	if r[0] != 0 || r[1] != 0 || r[2] != 0 {
		t.Errorf("expected zero residual after moving, got %v", r)
	}
}

func TestCartesianJoint_LockedAxis(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	b2, f2 := bodyWithFrame("b", mgl64.Vec3{}, mgl64.Vec3{})

	j, err := NewCartesianJoint("c", f1, f2, AxisZ)
	if err != nil {
		t.Fatalf("new joint failed: %v", err)
	}

	b2.Position = mgl64.Vec3{3, -4, 0}
	if r := j.Residual(); len(r) != 1 || r[0] != 0 {
		t.Errorf("moving free axes should keep residual 0, got %v", r)
	}

	delta := 0.25
	b2.Position = mgl64.Vec3{3, -4, delta}
	if r := j.Residual(); math.Abs(r[0]-delta) > 1e-15 {
		t.Errorf("expected residual [%v], got %v", delta, r)
	}
}

func TestCartesianJoint_InvalidAxis(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	_, f2 := bodyWithFrame("b", mgl64.Vec3{}, mgl64.Vec3{})

	if _, err := NewCartesianJoint("c", f1, f2, Axis(3)); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("expected ErrInvalidAxis, got %v", err)
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want Axis
		ok   bool
	}{
		{"x", AxisX, true},
		{"Y", AxisY, true},
		{" z ", AxisZ, true},
		{"w", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseAxis(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseAxis(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidAxis) {
			t.Errorf("ParseAxis(%q) expected ErrInvalidAxis, got %v", tt.in, err)
		}
	}
}

func TestRevoluteJoint_DegenerateAxis(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	_, f2 := bodyWithFrame("b", mgl64.Vec3{}, mgl64.Vec3{})

	axes := []mgl64.Vec3{
		{0, 0, 1},
		{1, 0, 1},
		{1, 1, 0},
		{math.NaN(), 1, 1},
	}
	for _, axis := range axes {
		if _, err := NewRevoluteJoint("r", f1, f2, axis); !errors.Is(err, ErrDegenerateAxis) {
			t.Errorf("axis %v: expected ErrDegenerateAxis, got %v", axis, err)
		}
	}
}

func TestRevoluteJoint_Residual(t *testing.T) {
	axis := mgl64.Vec3{1, 2, 3}
	b1, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	b2, f2 := bodyWithFrame("b", mgl64.Vec3{}, mgl64.Vec3{})

	j, err := NewRevoluteJoint("r", f1, f2, axis)
	if err != nil {
		t.Fatalf("new joint failed: %v", err)
	}
	if j.Dim() != 9 {
		t.Fatalf("expected dim 9, got %d", j.Dim())
	}

	b1.Orientation = spatial.AxisAngle(axis, 0.4)
	b2.Orientation = spatial.AxisAngle(axis, -1.1)
	for i, v := range j.Residual() {
		if math.Abs(v) > 1e-12 {
			t.Errorf("component %d: expected 0 for rotation about the axis, got %v", i, v)
		}
	}

	b2.Orientation = spatial.AxisAngle(mgl64.Vec3{1, 0, 0}, 0.3)
	r := j.Residual()
	off := 0.0
	for _, v := range r[6:] {
		off += math.Abs(v)
	}
	if off < 1e-3 {
		t.Errorf("expected nonzero rotational residual for off-axis rotation, got %v", r[6:])
	}
	for _, v := range r[3:6] {
		if math.Abs(v) > 1e-12 {
			t.Errorf("first body residual should stay zero, got %v", r[3:6])
		}
	}
}

func TestDistanceJoint(t *testing.T) {
	_, f1 := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	b2, f2 := bodyWithFrame("b", mgl64.Vec3{3, 4, 0}, mgl64.Vec3{})

	j, err := NewDistanceJoint("d", f1, f2)
	if err != nil {
		t.Fatalf("new joint failed: %v", err)
	}
	if math.Abs(j.Length()-5) > 1e-12 {
		t.Errorf("expected captured length 5, got %f", j.Length())
	}
	if r := j.Residual(); math.Abs(r[0]) > 1e-12 {
		t.Errorf("expected zero residual at construction, got %v", r)
	}

	b2.Position = mgl64.Vec3{0, 0, 6}
	if r := j.Residual(); math.Abs(r[0]-1) > 1e-12 {
		t.Errorf("expected residual 1, got %v", r)
	}

	if _, err := NewDistanceJointLength("d", f1, f2, -1); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestJointConstruction_Errors(t *testing.T) {
	_, attached := bodyWithFrame("a", mgl64.Vec3{}, mgl64.Vec3{})
	loose := NewFrame("loose", mgl64.Vec3{})

	if _, err := NewSphericalJoint("s", attached, loose); !errors.Is(err, ErrUnattachedFrame) {
		t.Errorf("expected ErrUnattachedFrame, got %v", err)
	}
	if _, err := NewSphericalJoint("s", attached, attached); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for self joint, got %v", err)
	}
	if _, err := NewDistanceJoint("d", nil, attached); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for nil frame, got %v", err)
	}
}

func TestJointKinds(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
	}{
		{KindSpherical, "spherical"},
		{KindCartesian, "cartesian"},
		{KindRevolute, "revolute"},
		{KindDistance, "distance"},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name {
			t.Errorf("expected %s, got %s", tt.name, tt.kind)
		}
	}
}
