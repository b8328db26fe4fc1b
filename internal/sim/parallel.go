package sim

import (
	"context"
	"sync"

	"github.com/san-kum/kinsim/internal/kinematics"
)

// Job is one independent run of a batch.
type Job struct {
	Name      string
	System    *kinematics.System
	Config    Config
	Simulator *Simulator
}

// Outcome pairs a job's history with the error its run returned.
type Outcome struct {
	Name    string
	History *History
	Err     error
}

// RunBatch runs independent jobs concurrently, at most workers at a time.
// Jobs must not share systems or simulators. Outcomes are in job order.
func RunBatch(ctx context.Context, jobs []Job, workers int) []Outcome {
	if workers <= 0 {
		workers = 1
	}
	out := make([]Outcome, len(jobs))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			h, err := job.Simulator.Run(ctx, job.System, job.Config)
			out[idx] = Outcome{Name: job.Name, History: h, Err: err}
		}(i, job)
	}

	wg.Wait()
	return out
}
