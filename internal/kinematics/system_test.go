package kinematics

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/spatial"
)

// mixedSystem interleaves free, fixed and driven bodies so that pack order and
// body order differ.
func mixedSystem(t *testing.T) (*System, []*Body) {
	t.Helper()

	ground := NewBody("ground", mgl64.Vec3{}, spatial.Identity)
	if err := ground.Fix(); err != nil {
		t.Fatal(err)
	}
	a := NewBody("a", mgl64.Vec3{1, 2, 3}, spatial.AxisAngle(mgl64.Vec3{0, 0, 1}, 0.3))
	driver := NewBody("driver", mgl64.Vec3{0, 0, 1}, spatial.Identity)
	err := driver.SetMotion(func(step int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{0, 0, 1 + 0.1*float64(step)}, spatial.Identity
	})
	if err != nil {
		t.Fatal(err)
	}
	b := NewBody("b", mgl64.Vec3{-4, 5, -6}, mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, 0.5, 0.5}})

	bodies := []*Body{ground, a, driver, b}
	for _, body := range bodies {
		if err := body.AddFrame(NewFrame("f", mgl64.Vec3{1, 0, 0})); err != nil {
			t.Fatalf("add frame failed: %v", err)
		}
	}

	sys := NewSystem()
	for _, body := range bodies {
		if err := sys.AddBody(body); err != nil {
			t.Fatalf("add body failed: %v", err)
		}
	}
	return sys, bodies
}

func mustFrame(t *testing.T, sys *System, path string) *Frame {
	t.Helper()
	f, ok := sys.Frame(path)
	if !ok {
		t.Fatalf("frame %s not found", path)
	}
	return f
}

func TestSystemPack_Order(t *testing.T) {
	sys, bodies := mixedSystem(t)
	a := bodies[1]

	x := sys.Pack()
	if len(x) != 14 || sys.Dim() != 14 {
		t.Fatalf("expected 14 values, got %d (dim %d)", len(x), sys.Dim())
	}

	want := []float64{
		1, 2, 3, a.Orientation.W, a.Orientation.V[0], a.Orientation.V[1], a.Orientation.V[2],
		-4, 5, -6, 0.5, 0.5, 0.5, 0.5,
	}
	for i := range want {
		if x[i] != want[i] {
			t.Errorf("x[%d] = %v, want %v", i, x[i], want[i])
		}
	}
}

func TestSystemUnpack_RoundTrip(t *testing.T) {
	sys, _ := mixedSystem(t)

	x := []float64{
		9, 8, 7, 0.1, 0.2, 0.3, 0.4,
		-1, -2, -3, 1, 0, 0, 0,
	}
	if err := sys.Unpack(x); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	got := sys.Pack()
	for i := range x {
		if got[i] != x[i] {
			t.Errorf("pack(unpack(x))[%d] = %v, want %v", i, got[i], x[i])
		}
	}

	a, _ := sys.Body("a")
	if a.Position != (mgl64.Vec3{9, 8, 7}) || a.Orientation.W != 0.1 {
		t.Errorf("unpack wrote wrong pose to a: %v %v", a.Position, a.Orientation)
	}
	ground, _ := sys.Body("ground")
	if ground.Position != (mgl64.Vec3{}) {
		t.Error("unpack touched a fixed body")
	}
}

func TestSystemPack_RoundTripState(t *testing.T) {
	sys, _ := mixedSystem(t)
	before := sys.Snapshot()

	if err := sys.Unpack(sys.Pack()); err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	after := sys.Snapshot()
	for i := range before {
		if !vecClose(before[i].Position, after[i].Position, 1e-15) || before[i].Orientation != after[i].Orientation {
			t.Errorf("body %d pose changed: %v -> %v", i, before[i], after[i])
		}
	}
}

func TestSystemUnpack_DimensionMismatch(t *testing.T) {
	sys, _ := mixedSystem(t)

	for _, n := range []int{0, 7, 13, 15, 21} {
		err := sys.Unpack(make([]float64, n))
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("len %d: expected ErrDimensionMismatch, got %v", n, err)
		}
		var dimErr *DimensionError
		if !errors.As(err, &dimErr) || dimErr.Want != 14 || dimErr.Got != n {
			t.Errorf("len %d: expected DimensionError{14, %d}, got %v", n, n, err)
		}
	}
}

func TestSystemResidual_Order(t *testing.T) {
	sys, bodies := mixedSystem(t)

	j1, err := NewCartesianJoint("c", mustFrame(t, sys, "ground.f"), mustFrame(t, sys, "a.f"), AxisX)
	if err != nil {
		t.Fatal(err)
	}
	j2, err := NewSphericalJoint("s", mustFrame(t, sys, "driver.f"), mustFrame(t, sys, "b.f"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.AddJoint(j1); err != nil {
		t.Fatal(err)
	}
	if err := sys.AddJoint(j2); err != nil {
		t.Fatal(err)
	}

	bodies[3].Orientation = mgl64.Quat{W: 1, V: mgl64.Vec3{1, 0, 0}}

	r := sys.Residual()
	if len(r) != 1+3+4 || sys.ResidualDim() != 8 {
		t.Fatalf("expected 8 residuals, got %d", len(r))
	}

	expected := make([]float64, 0, 8)
	expected = append(expected, j1.Residual()...)
	expected = append(expected, j2.Residual()...)
	for _, b := range bodies {
		expected = append(expected, b.QuaternionResidual())
	}
	for i := range expected {
		if math.Abs(r[i]-expected[i]) > 1e-15 {
			t.Errorf("r[%d] = %v, want %v", i, r[i], expected[i])
		}
	}
	if r[7] != 1 {
		t.Errorf("last residual should be b's quaternion term 1, got %v", r[7])
	}
}

func TestSystemObjective_MatchesResidual(t *testing.T) {
	sys, _ := mixedSystem(t)
	j, err := NewRevoluteJoint("r", mustFrame(t, sys, "a.f"), mustFrame(t, sys, "b.f"), mgl64.Vec3{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.AddJoint(j); err != nil {
		t.Fatal(err)
	}

	obj := sys.Objective()
	x := []float64{
		0.5, 0.5, 0.5, 0.9, 0.1, 0.1, 0.1,
		1, 1, 1, 0.7, 0.7, 0, 0,
	}
	got := make([]float64, sys.ResidualDim())
	obj(got, x)

	before := sys.Pack()
	if before[0] == 0.5 {
		t.Fatal("objective must not write body state")
	}

	if err := sys.Unpack(x); err != nil {
		t.Fatal(err)
	}
	want := sys.Residual()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("objective[%d] = %v, residual = %v", i, got[i], want[i])
		}
	}
}

func TestSystemObjective_Concurrent(t *testing.T) {
	sys, _ := mixedSystem(t)
	j, err := NewSphericalJoint("s", mustFrame(t, sys, "a.f"), mustFrame(t, sys, "b.f"))
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.AddJoint(j); err != nil {
		t.Fatal(err)
	}

	obj := sys.Objective()
	base := sys.Pack()
	ref := make([]float64, sys.ResidualDim())
	obj(ref, base)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			x := append([]float64(nil), base...)
			x[0] += float64(w)
			dst := make([]float64, len(ref))
			obj(dst, x)
			obj(dst, base)
			for i := range ref {
				if dst[i] != ref[i] {
					t.Errorf("worker %d: residual[%d] = %v, want %v", w, i, dst[i], ref[i])
					return
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestSystemDrive(t *testing.T) {
	sys, bodies := mixedSystem(t)

	if n := sys.Drive(5); n != 1 {
		t.Errorf("expected 1 driven body, got %d", n)
	}
	if math.Abs(bodies[2].Position.Z()-1.5) > 1e-12 {
		t.Errorf("expected driver z 1.5, got %f", bodies[2].Position.Z())
	}
	if len(sys.Pack()) != 14 {
		t.Error("driven body must not enter the packed state")
	}
}

func TestSystemTopologyErrors(t *testing.T) {
	sys, _ := mixedSystem(t)

	outsider := NewBody("outsider", mgl64.Vec3{}, spatial.Identity)
	of := NewFrame("f", mgl64.Vec3{})
	if err := outsider.AddFrame(of); err != nil {
		t.Fatal(err)
	}
	j, err := NewSphericalJoint("s", mustFrame(t, sys, "a.f"), of)
	if err != nil {
		t.Fatal(err)
	}
	if err := sys.AddJoint(j); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for unregistered body, got %v", err)
	}

	a, _ := sys.Body("a")
	if err := sys.AddBody(a); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for re-added body, got %v", err)
	}
	if err := sys.AddBody(NewBody("a", mgl64.Vec3{}, spatial.Identity)); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for duplicate name, got %v", err)
	}
	if err := sys.AddBody(NewBody("x.y", mgl64.Vec3{}, spatial.Identity)); !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for dotted name, got %v", err)
	}

	sys.Freeze()
	if err := sys.AddBody(NewBody("late", mgl64.Vec3{}, spatial.Identity)); !errors.Is(err, ErrTopologyFrozen) {
		t.Errorf("expected ErrTopologyFrozen, got %v", err)
	}
	if err := a.AddFrame(NewFrame("late", mgl64.Vec3{})); !errors.Is(err, ErrTopologyFrozen) {
		t.Errorf("expected ErrTopologyFrozen for frame, got %v", err)
	}
}

func TestSystemFrozenRoles(t *testing.T) {
	sys, bodies := mixedSystem(t)
	ground, a, driver := bodies[0], bodies[1], bodies[2]
	sys.Freeze()
	dim := sys.Dim()

	changes := []struct {
		name   string
		change func() error
	}{
		{"free to fixed", a.Fix},
		{"fixed to free", ground.SetFree},
		{"driven to free", driver.SetFree},
		{"driven to fixed", func() error { return driver.SetMotion(nil) }},
		{"free to driven", func() error {
			return a.SetMotion(func(int) (mgl64.Vec3, mgl64.Quat) { return mgl64.Vec3{}, spatial.Identity })
		}},
	}
	for _, tt := range changes {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.change(); !errors.Is(err, ErrTopologyFrozen) {
				t.Errorf("expected ErrTopologyFrozen, got %v", err)
			}
			if sys.Dim() != dim {
				t.Errorf("expected Dim %d, got %d", dim, sys.Dim())
			}
		})
	}

	if a.Role() != Free || ground.Role() != Fixed || driver.Role() != Driven || driver.Motion() == nil {
		t.Errorf("roles changed: %v %v %v", ground.Role(), a.Role(), driver.Role())
	}

	if err := a.SetFree(); err != nil {
		t.Errorf("keeping a role should succeed, got %v", err)
	}
	swapped := func(step int) (mgl64.Vec3, mgl64.Quat) { return mgl64.Vec3{0, 0, float64(step)}, spatial.Identity }
	if err := driver.SetMotion(swapped); err != nil {
		t.Errorf("swapping a motion function should succeed, got %v", err)
	}
	sys.Drive(2)
	if driver.Position.Z() != 2 {
		t.Errorf("expected swapped motion to drive z to 2, got %f", driver.Position.Z())
	}
}

func TestSystemFreezeConcurrentWithAddFrame(t *testing.T) {
	sys, bodies := mixedSystem(t)

	var wg sync.WaitGroup
	errs := make([]error, len(bodies))
	for i, b := range bodies {
		wg.Add(1)
		go func(i int, b *Body) {
			defer wg.Done()
			errs[i] = b.AddFrame(NewFrame("late", mgl64.Vec3{}))
		}(i, b)
	}
	sys.Freeze()
	wg.Wait()

	for i, err := range errs {
		if err != nil && !errors.Is(err, ErrTopologyFrozen) {
			t.Errorf("body %d: expected nil or ErrTopologyFrozen, got %v", i, err)
		}
	}
}

func TestSystemSnapshotRestore(t *testing.T) {
	sys, bodies := mixedSystem(t)
	snap := sys.Snapshot()

	bodies[1].Position = mgl64.Vec3{100, 100, 100}
	if err := sys.Restore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if bodies[1].Position != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("restore did not reset position: %v", bodies[1].Position)
	}

	p, err := snap.FramePosition(mustFrame(t, sys, "a.f"))
	if err != nil {
		t.Fatal(err)
	}
	live, _ := mustFrame(t, sys, "a.f").GlobalPosition()
	if !vecClose(p, live, 1e-12) {
		t.Errorf("snapshot frame position %v differs from live %v", p, live)
	}

	if err := sys.Restore(snap[:2]); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSystemOverlay(t *testing.T) {
	sys, _ := mixedSystem(t)
	base := sys.Snapshot()
	x := sys.Pack()
	x[7] = 42

	poses, err := sys.Overlay(base, x)
	if err != nil {
		t.Fatal(err)
	}
	if poses[3].Position.X() != 42 {
		t.Errorf("expected overlay on body b, got %v", poses[3].Position)
	}
	if base[3].Position.X() == 42 {
		t.Error("overlay modified its base")
	}

	r, err := sys.ResidualAt(poses)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != sys.ResidualDim() {
		t.Errorf("expected %d residuals, got %d", sys.ResidualDim(), len(r))
	}

	if _, err := sys.Overlay(base, x[:3]); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
