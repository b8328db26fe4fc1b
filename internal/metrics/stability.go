package metrics

import "github.com/san-kum/kinsim/internal/sim"

// ConvergenceRate is the fraction of records that converged.
type ConvergenceRate struct {
	name      string
	converged int
	samples   int
}

func NewConvergenceRate() *ConvergenceRate {
	return &ConvergenceRate{name: "convergence_rate"}
}

func (c *ConvergenceRate) Name() string {
	return c.name
}

func (c *ConvergenceRate) Observe(rec sim.StepRecord) {
	c.samples++
	if rec.Converged {
		c.converged++
	}
}

func (c *ConvergenceRate) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.converged) / float64(c.samples)
}

func (c *ConvergenceRate) Reset() {
	c.converged = 0
	c.samples = 0
}
