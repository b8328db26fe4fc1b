package experiment

import (
	"context"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/sim"
	"github.com/san-kum/kinsim/internal/spatial"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	system    *kinematics.System
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
	}
}

// Setup builds the mechanism and a simulator with the configured solver and
// metrics.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	sys, err := Build(e.cfg, e.registry)
	if err != nil {
		return err
	}
	method, err := e.registry.GetSolver(e.cfg.Run.Solver, e.SimConfig().SolverSettings())
	if err != nil {
		return err
	}

	e.system = sys
	e.simulator = sim.New(method)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.History, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.system, e.SimConfig())
}

// SimConfig maps the run section of the config onto the simulator's.
func (e *Experiment) SimConfig() sim.Config {
	r := e.cfg.Run
	return sim.Config{
		Steps:           r.Steps,
		Tolerance:       r.Tolerance,
		MaxIterations:   r.MaxIterations,
		StepTimeout:     r.StepTimeout,
		Lenient:         r.Lenient,
		AssembleInitial: r.AssembleInitial,
		Concurrent:      r.Concurrent,
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Registry() *Registry { return e.registry }

func (e *Experiment) System() *kinematics.System { return e.system }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) SetLogger(l *log.Logger) {
	if e.simulator != nil {
		e.simulator.SetLogger(l)
	}
}

// Build turns a validated config into a kinematic system.
func Build(cfg *config.Config, r *Registry) (*kinematics.System, error) {
	sys := kinematics.NewSystem()

	for _, bc := range cfg.Bodies {
		pos := mgl64.Vec3{}
		if len(bc.Position) == 3 {
			pos = spatial.Vec3FromSlice(bc.Position)
		}
		q := mgl64.QuatIdent()
		if len(bc.Orientation) == 4 {
			q = spatial.QuatFromSlice(bc.Orientation)
		}
		b := kinematics.NewBody(bc.Name, pos, q)

		switch bc.RoleName() {
		case "fixed":
			if err := b.Fix(); err != nil {
				return nil, err
			}
		case "driven":
			profile, err := r.GetProfile(bc.Motion.Profile)
			if err != nil {
				return nil, fmt.Errorf("body %q: %w", bc.Name, err)
			}
			motion, err := profile(b.Pose(), bc.Motion.Params)
			if err != nil {
				return nil, fmt.Errorf("body %q: %w", bc.Name, err)
			}
			if err := b.SetMotion(motion); err != nil {
				return nil, fmt.Errorf("body %q: %w", bc.Name, err)
			}
		}

		for _, fc := range bc.Frames {
			offset := mgl64.Vec3{}
			if len(fc.Offset) == 3 {
				offset = spatial.Vec3FromSlice(fc.Offset)
			}
			f := kinematics.NewFrame(fc.Name, offset)
			f.DesignVariable = fc.DesignVariable
			if err := b.AddFrame(f); err != nil {
				return nil, err
			}
		}
		if err := sys.AddBody(b); err != nil {
			return nil, err
		}
	}

	for _, jc := range cfg.Joints {
		j, err := buildJoint(sys, jc)
		if err != nil {
			return nil, err
		}
		if err := sys.AddJoint(j); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

func buildJoint(sys *kinematics.System, jc config.JointConfig) (kinematics.Joint, error) {
	if len(jc.Frames) != 2 {
		return nil, fmt.Errorf("joint %q: need 2 frames, got %d", jc.Name, len(jc.Frames))
	}
	f1, ok := sys.Frame(jc.Frames[0])
	if !ok {
		return nil, fmt.Errorf("joint %q: unknown frame %q: %w", jc.Name, jc.Frames[0], kinematics.ErrMalformedTopology)
	}
	f2, ok := sys.Frame(jc.Frames[1])
	if !ok {
		return nil, fmt.Errorf("joint %q: unknown frame %q: %w", jc.Name, jc.Frames[1], kinematics.ErrMalformedTopology)
	}

	switch jc.Type {
	case "spherical":
		return kinematics.NewSphericalJoint(jc.Name, f1, f2)
	case "cartesian":
		axis, err := kinematics.ParseAxis(jc.Axis)
		if err != nil {
			return nil, fmt.Errorf("joint %q: %w", jc.Name, err)
		}
		return kinematics.NewCartesianJoint(jc.Name, f1, f2, axis)
	case "revolute":
		if len(jc.RotationAxis) != 3 {
			return nil, fmt.Errorf("joint %q: rotation axis needs 3 components: %w", jc.Name, kinematics.ErrDegenerateAxis)
		}
		return kinematics.NewRevoluteJoint(jc.Name, f1, f2, spatial.Vec3FromSlice(jc.RotationAxis))
	case "distance":
		if jc.Length != nil {
			return kinematics.NewDistanceJointLength(jc.Name, f1, f2, *jc.Length)
		}
		return kinematics.NewDistanceJoint(jc.Name, f1, f2)
	}
	return nil, fmt.Errorf("joint %q: unknown type %q", jc.Name, jc.Type)
}
