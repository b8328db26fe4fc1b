package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/experiment"
	"github.com/san-kum/kinsim/internal/metrics"
)

var ErrNoFeasibleTrial = errors.New("optim: no trial ran to completion")

// GridSearch runs a mechanism once per point of the cartesian product of
// parameter ranges and keeps the point with the lowest metric value.
type GridSearch struct {
	params []Param
	ranges [][]float64
}

func NewGridSearch(params []Param, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d params for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: empty range for %s", params[i])
		}
	}
	return &GridSearch{params: params, ranges: ranges}, nil
}

// Trial is one evaluated grid point. Err is set when the run failed; such
// trials never win.
type Trial struct {
	Values map[string]float64
	Value  float64
	Err    error
}

type Result struct {
	Best   map[string]float64
	Value  float64
	Trials []Trial
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point against base and minimizes metricName,
// which must be one of the standard run metrics.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (*Result, error) {
	if !knownMetric(metricName) {
		return nil, fmt.Errorf("unknown metric %q", metricName)
	}
	probe, err := base.Clone()
	if err != nil {
		return nil, err
	}
	for i, p := range g.params {
		if err := p.Apply(probe, g.ranges[i][0]); err != nil {
			return nil, err
		}
	}

	res := &Result{Value: math.Inf(1), Trials: make([]Trial, 0, g.Size())}
	if err := g.searchRecursive(ctx, 0, make([]float64, len(g.params)), base, metricName, res); err != nil {
		return res, err
	}
	if res.Best == nil {
		return res, ErrNoFeasibleTrial
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current []float64, base *config.Config, metricName string, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.params) {
		trial := g.evaluate(ctx, current, base, metricName)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.Trials = append(res.Trials, trial)
		if trial.Err == nil && trial.Value < res.Value {
			res.Value = trial.Value
			res.Best = trial.Values
		}
		return nil
	}

	for _, val := range g.ranges[depth] {
		current[depth] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, metricName, res); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, values []float64, base *config.Config, metricName string) Trial {
	trial := Trial{Values: make(map[string]float64, len(values))}
	for i, p := range g.params {
		trial.Values[p.String()] = values[i]
	}

	cfg, err := base.Clone()
	if err != nil {
		trial.Err = err
		return trial
	}
	for i, p := range g.params {
		if err := p.Apply(cfg, values[i]); err != nil {
			trial.Err = err
			return trial
		}
	}

	ms := metrics.Standard()
	exp := experiment.New(cfg)
	if err := exp.Setup(ms); err != nil {
		trial.Err = err
		return trial
	}
	if _, err := exp.Run(ctx); err != nil {
		trial.Err = err
		return trial
	}
	for _, m := range ms {
		if m.Name() == metricName {
			trial.Value = m.Value()
		}
	}
	return trial
}

func knownMetric(name string) bool {
	for _, m := range metrics.Standard() {
		if m.Name() == name {
			return true
		}
	}
	return false
}
