package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSteps         = 20
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 200
	DefaultSolver        = "lm"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config describes a mechanism and how to run it.
type Config struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Run         RunConfig     `yaml:"run"`
	Bodies      []BodyConfig  `yaml:"bodies" validate:"required,min=1,dive"`
	Joints      []JointConfig `yaml:"joints" validate:"dive"`
}

type RunConfig struct {
	Steps           int           `yaml:"steps" validate:"gte=0"`
	Tolerance       float64       `yaml:"tolerance" validate:"gt=0"`
	MaxIterations   int           `yaml:"max_iterations" validate:"gte=0"`
	Solver          string        `yaml:"solver" validate:"required"`
	Lenient         bool          `yaml:"lenient"`
	StepTimeout     time.Duration `yaml:"step_timeout" validate:"gte=0"`
	AssembleInitial bool          `yaml:"assemble_initial"`
	Concurrent      bool          `yaml:"concurrent"`
}

// BodyConfig is one body. Role defaults to free, or driven when Motion is set.
type BodyConfig struct {
	Name        string        `yaml:"name" validate:"required,excludes=."`
	Role        string        `yaml:"role,omitempty" validate:"omitempty,oneof=free fixed driven"`
	Position    []float64     `yaml:"position,omitempty" validate:"omitempty,len=3"`
	Orientation []float64     `yaml:"orientation,omitempty" validate:"omitempty,len=4"`
	Motion      *MotionConfig `yaml:"motion,omitempty"`
	Frames      []FrameConfig `yaml:"frames" validate:"dive"`
}

type MotionConfig struct {
	Profile string             `yaml:"profile" validate:"required"`
	Params  map[string]float64 `yaml:"params,omitempty"`
}

type FrameConfig struct {
	Name           string    `yaml:"name" validate:"required,excludes=."`
	Offset         []float64 `yaml:"offset,omitempty" validate:"omitempty,len=3"`
	DesignVariable bool      `yaml:"design_variable,omitempty"`
}

// JointConfig is one joint. Frames are addressed as "body.frame".
type JointConfig struct {
	Name         string    `yaml:"name" validate:"required"`
	Type         string    `yaml:"type" validate:"required,oneof=spherical cartesian revolute distance"`
	Frames       []string  `yaml:"frames" validate:"len=2,dive,required,contains=."`
	Axis         string    `yaml:"axis,omitempty" validate:"required_if=Type cartesian,omitempty,oneof=x y z"`
	RotationAxis []float64 `yaml:"rotation_axis,omitempty" validate:"required_if=Type revolute,omitempty,len=3"`
	Length       *float64  `yaml:"length,omitempty" validate:"omitempty,gte=0"`
}

// RoleName resolves the effective role of a body.
func (b BodyConfig) RoleName() string {
	if b.Role != "" {
		return b.Role
	}
	if b.Motion != nil {
		return "driven"
	}
	return "free"
}

func DefaultRun() RunConfig {
	return RunConfig{
		Steps:         DefaultSteps,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		Solver:        DefaultSolver,
	}
}

// DefaultConfig is the spherical preset.
func DefaultConfig() *Config {
	return Spherical()
}

// Load reads a YAML config. Run settings the file omits keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Run: DefaultRun()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

var validate = validator.New()

// Validate checks field constraints and cross references between bodies,
// frames and joints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	frames := make(map[string]bool)
	bodies := make(map[string]bool, len(c.Bodies))
	for _, b := range c.Bodies {
		if bodies[b.Name] {
			return fmt.Errorf("%w: duplicate body %q", ErrInvalidConfig, b.Name)
		}
		bodies[b.Name] = true

		role := b.RoleName()
		if role == "driven" && b.Motion == nil {
			return fmt.Errorf("%w: body %q is driven but has no motion", ErrInvalidConfig, b.Name)
		}
		if role != "driven" && b.Motion != nil {
			return fmt.Errorf("%w: body %q is %s but has a motion", ErrInvalidConfig, b.Name, role)
		}

		for _, f := range b.Frames {
			path := b.Name + "." + f.Name
			if frames[path] {
				return fmt.Errorf("%w: duplicate frame %q", ErrInvalidConfig, path)
			}
			frames[path] = true
		}
	}

	joints := make(map[string]bool, len(c.Joints))
	for _, j := range c.Joints {
		if joints[j.Name] {
			return fmt.Errorf("%w: duplicate joint %q", ErrInvalidConfig, j.Name)
		}
		joints[j.Name] = true
		for _, path := range j.Frames {
			if !frames[path] {
				return fmt.Errorf("%w: joint %q references unknown frame %q", ErrInvalidConfig, j.Name, path)
			}
		}
		if j.Frames[0] == j.Frames[1] {
			return fmt.Errorf("%w: joint %q joins frame %q to itself", ErrInvalidConfig, j.Name, j.Frames[0])
		}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("%s must have %s components", field, fe.Param())
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	case "contains":
		return fmt.Sprintf("%s must contain %q", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
}
