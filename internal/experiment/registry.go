package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/metrics"
	"github.com/san-kum/kinsim/internal/sim"
	"github.com/san-kum/kinsim/internal/solver"
	"github.com/san-kum/kinsim/internal/spatial"
)

// Profile builds a motion function around a body's configured pose.
type Profile func(base kinematics.Pose, params map[string]float64) (kinematics.MotionFunc, error)

type Registry struct {
	profiles map[string]Profile
	solvers  map[string]func(solver.Settings) solver.Method
}

func NewRegistry() *Registry {
	r := &Registry{
		profiles: make(map[string]Profile),
		solvers:  make(map[string]func(solver.Settings) solver.Method),
	}

	r.profiles["heave"] = heave
	r.profiles["linear"] = linear
	r.profiles["rotate"] = rotate
	r.profiles["sine"] = sine

	r.solvers["lm"] = func(s solver.Settings) solver.Method { return solver.NewLevenbergMarquardt(s) }
	r.solvers["bfgs"] = func(s solver.Settings) solver.Method {
		s.Central = true
		return solver.NewBFGS(s)
	}

	return r
}

// RegisterProfile adds or replaces a motion profile.
func (r *Registry) RegisterProfile(name string, p Profile) {
	r.profiles[name] = p
}

func (r *Registry) GetProfile(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown motion profile: %s", name)
	}
	return p, nil
}

func (r *Registry) GetSolver(name string, s solver.Settings) (solver.Method, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s", name)
	}
	return fn(s), nil
}

func (r *Registry) ListProfiles() []string {
	return sortedKeys(r.profiles)
}

func (r *Registry) ListSolvers() []string {
	return sortedKeys(r.solvers)
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Standard()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}

// heave raises the body by rate per step.
func heave(base kinematics.Pose, params map[string]float64) (kinematics.MotionFunc, error) {
	rate := param(params, "rate", 0.1)
	return func(step int) (mgl64.Vec3, mgl64.Quat) {
		return base.Position.Add(mgl64.Vec3{0, 0, rate * float64(step)}), base.Orientation
	}, nil
}

// linear translates the body by (vx, vy, vz) per step.
func linear(base kinematics.Pose, params map[string]float64) (kinematics.MotionFunc, error) {
	v := mgl64.Vec3{param(params, "vx", 0), param(params, "vy", 0), param(params, "vz", 0)}
	return func(step int) (mgl64.Vec3, mgl64.Quat) {
		return base.Position.Add(v.Mul(float64(step))), base.Orientation
	}, nil
}

// rotate spins the body about a world axis (ax, ay, az) by rate radians per
// step.
func rotate(base kinematics.Pose, params map[string]float64) (kinematics.MotionFunc, error) {
	axis := mgl64.Vec3{param(params, "ax", 0), param(params, "ay", 0), param(params, "az", 1)}
	if axis.Len() == 0 {
		return nil, fmt.Errorf("rotate: zero axis")
	}
	rate := param(params, "rate", 0.05)
	return func(step int) (mgl64.Vec3, mgl64.Quat) {
		q := spatial.AxisAngle(axis, rate*float64(step))
		return base.Position, q.Mul(base.Orientation)
	}, nil
}

// sine oscillates the body along world axis 0, 1 or 2 with the given
// amplitude, period in steps and phase.
func sine(base kinematics.Pose, params map[string]float64) (kinematics.MotionFunc, error) {
	axis := int(param(params, "axis", 2))
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("sine: axis %d out of range", axis)
	}
	period := param(params, "period", 20)
	if period <= 0 {
		return nil, fmt.Errorf("sine: period must be positive, got %g", period)
	}
	amp := param(params, "amplitude", 0.1)
	phase := param(params, "phase", 0)
	return func(step int) (mgl64.Vec3, mgl64.Quat) {
		p := base.Position
		p[axis] += amp * math.Sin(2*math.Pi*float64(step)/period+phase)
		return p, base.Orientation
	}, nil
}
