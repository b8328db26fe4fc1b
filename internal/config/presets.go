package config

import "sort"

// Presets builds fresh copies of the bundled mechanisms.
var Presets = map[string]func() *Config{
	"spherical":  Spherical,
	"heave":      Heave,
	"suspension": Suspension,
	"pendulum":   Pendulum,
}

// Spherical joins a free link to a fixed anchor by a ball joint.
func Spherical() *Config {
	run := DefaultRun()
	run.Steps = 1
	run.AssembleInitial = true
	return &Config{
		Name:        "spherical",
		Description: "free link pulled onto a fixed anchor by a ball joint",
		Run:         run,
		Bodies: []BodyConfig{
			{
				Name: "ground", Role: "fixed",
				Frames: []FrameConfig{{Name: "anchor", Offset: []float64{0.5, 0, 1}}},
			},
			{
				Name: "link", Position: []float64{3, -1, 2},
				Frames: []FrameConfig{{Name: "pivot"}},
			},
		},
		Joints: []JointConfig{
			{Name: "ball", Type: "spherical", Frames: []string{"ground.anchor", "link.pivot"}},
		},
	}
}

// Heave lifts a driven carrier 0.1 per step with a follower hitched to it.
func Heave() *Config {
	return &Config{
		Name:        "heave",
		Description: "driven carrier rising 0.1 per step towing a free follower",
		Run:         DefaultRun(),
		Bodies: []BodyConfig{
			{
				Name:   "carrier",
				Motion: &MotionConfig{Profile: "heave", Params: map[string]float64{"rate": 0.1}},
				Frames: []FrameConfig{{Name: "hitch", Offset: []float64{1, 0, 0}}},
			},
			{
				Name: "follower", Position: []float64{1, 0, 0},
				Frames: []FrameConfig{{Name: "pin"}},
			},
		},
		Joints: []JointConfig{
			{Name: "hitch", Type: "spherical", Frames: []string{"carrier.hitch", "follower.pin"}},
		},
	}
}

// Suspension is a short-long arm corner: two rigid arms and a tie rod locate
// the knuckle, and a driven road plate sets its contact height.
func Suspension() *Config {
	run := DefaultRun()
	run.Steps = 20
	return &Config{
		Name:        "suspension",
		Description: "double wishbone corner swept through 0.1 of wheel travel",
		Run:         run,
		Bodies: []BodyConfig{
			{
				Name: "chassis", Role: "fixed",
				Frames: []FrameConfig{
					{Name: "upper", Offset: []float64{0, 0.5, 0.3}},
					{Name: "lower", Offset: []float64{0, 0.4, 0}},
					{Name: "tie", Offset: []float64{0.1, 0.45, 0.15}},
				},
			},
			{
				Name: "upper_arm", Position: []float64{0, 0.75, 0.3},
				Frames: []FrameConfig{
					{Name: "inner", Offset: []float64{0, -0.25, 0}},
					{Name: "outer", Offset: []float64{0, 0.25, 0}},
				},
			},
			{
				Name: "lower_arm", Position: []float64{0, 0.7, 0},
				Frames: []FrameConfig{
					{Name: "inner", Offset: []float64{0, -0.3, 0}},
					{Name: "outer", Offset: []float64{0, 0.3, 0}},
				},
			},
			{
				Name: "knuckle", Position: []float64{0, 1, 0},
				Frames: []FrameConfig{
					{Name: "top", Offset: []float64{0, 0, 0.3}},
					{Name: "bottom"},
					{Name: "steer", Offset: []float64{0.1, 0, 0.15}},
					{Name: "contact", Offset: []float64{0, 0.1, -0.2}, DesignVariable: true},
				},
			},
			{
				Name:     "road",
				Position: []float64{0, 1.1, -0.2},
				Motion:   &MotionConfig{Profile: "heave", Params: map[string]float64{"rate": 0.005}},
				Frames:   []FrameConfig{{Name: "patch"}},
			},
		},
		Joints: []JointConfig{
			{Name: "upper_inner", Type: "spherical", Frames: []string{"chassis.upper", "upper_arm.inner"}},
			{Name: "upper_ball", Type: "spherical", Frames: []string{"upper_arm.outer", "knuckle.top"}},
			{Name: "lower_inner", Type: "spherical", Frames: []string{"chassis.lower", "lower_arm.inner"}},
			{Name: "lower_ball", Type: "spherical", Frames: []string{"lower_arm.outer", "knuckle.bottom"}},
			{Name: "tie_rod", Type: "distance", Frames: []string{"chassis.tie", "knuckle.steer"}},
			{Name: "travel", Type: "cartesian", Axis: "z", Frames: []string{"road.patch", "knuckle.contact"}},
		},
	}
}

// Pendulum swings a rigid arm about a fixed pivot by sliding its tip along x.
func Pendulum() *Config {
	run := DefaultRun()
	run.Steps = 40
	return &Config{
		Name:        "pendulum",
		Description: "arm on a ball pivot whose tip follows a sinusoidal slider",
		Run:         run,
		Bodies: []BodyConfig{
			{
				Name: "ground", Role: "fixed",
				Frames: []FrameConfig{{Name: "pivot"}, {Name: "plane"}},
			},
			{
				Name: "arm", Position: []float64{0, 0, -0.5},
				Frames: []FrameConfig{
					{Name: "hinge", Offset: []float64{0, 0, 0.5}},
					{Name: "tip", Offset: []float64{0, 0, -0.5}},
				},
			},
			{
				Name:   "slider",
				Motion: &MotionConfig{Profile: "sine", Params: map[string]float64{"axis": 0, "amplitude": 0.6, "period": 40}},
				Frames: []FrameConfig{{Name: "rail"}},
			},
		},
		Joints: []JointConfig{
			{Name: "pivot", Type: "spherical", Frames: []string{"ground.pivot", "arm.hinge"}},
			{Name: "drive", Type: "cartesian", Axis: "x", Frames: []string{"slider.rail", "arm.tip"}},
			{Name: "swing_plane", Type: "cartesian", Axis: "y", Frames: []string{"ground.plane", "arm.tip"}},
		},
	}
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
