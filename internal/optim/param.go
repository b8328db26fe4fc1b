package optim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/kinsim/internal/config"
	"gonum.org/v1/gonum/floats"
)

// Param addresses one offset component of a design-variable frame, written
// "body.frame.axis".
type Param struct {
	Body, Frame string
	Axis        int
}

func ParseParam(s string) (Param, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Param{}, fmt.Errorf("param %q: want body.frame.axis", s)
	}
	axis := strings.Index("xyz", parts[2])
	if len(parts[2]) != 1 || axis < 0 {
		return Param{}, fmt.Errorf("param %q: axis must be x, y or z", s)
	}
	return Param{Body: parts[0], Frame: parts[1], Axis: axis}, nil
}

func (p Param) String() string {
	return p.Body + "." + p.Frame + "." + string("xyz"[p.Axis])
}

// Apply writes v into the addressed offset of cfg. Only design-variable
// frames may be changed.
func (p Param) Apply(cfg *config.Config, v float64) error {
	for bi := range cfg.Bodies {
		b := &cfg.Bodies[bi]
		if b.Name != p.Body {
			continue
		}
		for fi := range b.Frames {
			f := &b.Frames[fi]
			if f.Name != p.Frame {
				continue
			}
			if !f.DesignVariable {
				return fmt.Errorf("param %s: frame is not a design variable", p)
			}
			if len(f.Offset) != 3 {
				f.Offset = make([]float64, 3)
			}
			f.Offset[p.Axis] = v
			return nil
		}
	}
	return fmt.Errorf("param %s: no such frame", p)
}

// ParseRange reads "lo:hi:n" into n evenly spaced values.
func ParseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("range %q: want lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("range %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("range %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("range %q: %w", s, err)
	}
	switch {
	case n < 1:
		return nil, fmt.Errorf("range %q: need at least one value", s)
	case n == 1:
		return []float64{lo}, nil
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}

// ParseAssignment reads "body.frame.axis=lo:hi:n".
func ParseAssignment(s string) (Param, []float64, error) {
	name, rng, ok := strings.Cut(s, "=")
	if !ok {
		return Param{}, nil, fmt.Errorf("%q: want body.frame.axis=lo:hi:n", s)
	}
	p, err := ParseParam(name)
	if err != nil {
		return Param{}, nil, err
	}
	values, err := ParseRange(rng)
	if err != nil {
		return Param{}, nil, err
	}
	return p, values, nil
}
