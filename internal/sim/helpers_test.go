package sim_test

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/sim"
	"github.com/san-kum/kinsim/internal/solver"
	"github.com/san-kum/kinsim/internal/spatial"
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// sphericalSystem joins a free body to a fixed ground frame at (0.5, 0, 1).
// The free body starts away from the anchor.
func sphericalSystem() (*kinematics.System, *kinematics.Frame, *kinematics.Body) {
	sys := kinematics.NewSystem()

	ground := kinematics.NewBody("ground", mgl64.Vec3{}, mgl64.QuatIdent())
	must(ground.Fix())
	anchor := kinematics.NewFrame("anchor", mgl64.Vec3{0.5, 0, 1})
	must(ground.AddFrame(anchor))

	link := kinematics.NewBody("link", mgl64.Vec3{3, -1, 2}, mgl64.QuatIdent())
	pivot := kinematics.NewFrame("pivot", mgl64.Vec3{})
	must(link.AddFrame(pivot))

	must(sys.AddBody(ground))
	must(sys.AddBody(link))
	j, err := kinematics.NewSphericalJoint("ball", anchor, pivot)
	must(err)
	must(sys.AddJoint(j))
	return sys, anchor, link
}

// heaveSystem has a driven body rising 0.1 per step and a free follower held
// one unit along x from it by a spherical joint.
func heaveSystem() (*kinematics.System, *kinematics.Body) {
	sys := kinematics.NewSystem()

	driver := kinematics.NewBody("driver", mgl64.Vec3{}, mgl64.QuatIdent())
	must(driver.SetMotion(func(step int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{0, 0, 0.1 * float64(step)}, mgl64.QuatIdent()
	}))
	mount := kinematics.NewFrame("mount", mgl64.Vec3{1, 0, 0})
	must(driver.AddFrame(mount))

	follower := kinematics.NewBody("follower", mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())
	pin := kinematics.NewFrame("pin", mgl64.Vec3{})
	must(follower.AddFrame(pin))

	must(sys.AddBody(driver))
	must(sys.AddBody(follower))
	j, err := kinematics.NewSphericalJoint("hitch", mount, pin)
	must(err)
	must(sys.AddJoint(j))
	return sys, follower
}

// revoluteSystem hinges a free arm to a driven hub turning 0.1 rad per step
// about the world axis (1, 1, 1). The arm starts with its pin on the hub's
// crank and orientation start.
func revoluteSystem(start mgl64.Quat) (*kinematics.System, *kinematics.Frame, *kinematics.Frame, *kinematics.Body) {
	sys := kinematics.NewSystem()
	axis := mgl64.Vec3{1, 1, 1}

	hub := kinematics.NewBody("hub", mgl64.Vec3{}, mgl64.QuatIdent())
	must(hub.SetMotion(func(step int) (mgl64.Vec3, mgl64.Quat) {
		return mgl64.Vec3{}, spatial.AxisAngle(axis, 0.1*float64(step))
	}))
	crank := kinematics.NewFrame("crank", mgl64.Vec3{1, 0, 0})
	must(hub.AddFrame(crank))

	arm := kinematics.NewBody("arm", mgl64.Vec3{1, -0.5, 0}, start)
	pin := kinematics.NewFrame("pin", mgl64.Vec3{0, 0.5, 0})
	must(arm.AddFrame(pin))
	arm.Position = mgl64.Vec3{1, 0, 0}.Sub(spatial.Rotate(start, pin.Offset))

	must(sys.AddBody(hub))
	must(sys.AddBody(arm))
	j, err := kinematics.NewRevoluteJoint("hinge", crank, pin, axis)
	must(err)
	must(sys.AddJoint(j))
	return sys, crank, pin, arm
}

// conflictingSystem ties one free point to two fixed points a unit apart, so
// the best residual norm is √0.5.
func conflictingSystem() (*kinematics.System, *kinematics.Body) {
	sys := kinematics.NewSystem()

	ground := kinematics.NewBody("ground", mgl64.Vec3{}, mgl64.QuatIdent())
	must(ground.Fix())
	left := kinematics.NewFrame("left", mgl64.Vec3{})
	right := kinematics.NewFrame("right", mgl64.Vec3{1, 0, 0})
	must(ground.AddFrame(left, right))

	point := kinematics.NewBody("point", mgl64.Vec3{0.2, 0.3, 0}, mgl64.QuatIdent())
	tip := kinematics.NewFrame("tip", mgl64.Vec3{})
	must(point.AddFrame(tip))

	must(sys.AddBody(ground))
	must(sys.AddBody(point))
	a, err := kinematics.NewSphericalJoint("a", left, tip)
	must(err)
	b, err := kinematics.NewSphericalJoint("b", right, tip)
	must(err)
	must(sys.AddJoint(a))
	must(sys.AddJoint(b))
	return sys, point
}

// blockingMethod waits for its context and returns the guess unchanged.
type blockingMethod struct{}

func (blockingMethod) Name() string { return "block" }

func (blockingMethod) Minimize(ctx context.Context, p solver.Problem, x0 []float64) (*solver.Result, error) {
	<-ctx.Done()
	return &solver.Result{X: append([]float64(nil), x0...), Status: solver.Interrupted}, ctx.Err()
}

type countingMetric struct {
	count int
}

func (c *countingMetric) Name() string               { return "count" }
func (c *countingMetric) Observe(rec sim.StepRecord) { c.count++ }
func (c *countingMetric) Value() float64             { return float64(c.count) }
func (c *countingMetric) Reset()                     { c.count = 0 }
