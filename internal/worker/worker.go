// Package worker runs batches of seeded swarm simulations on a pool of
// goroutines.
package worker

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/harborlab/shipsim/internal/swarm"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

// Job is one seeded swarm run.
type Job struct {
	Index  int
	Seed   int64
	Config core.SwarmConfig
}

// Result is the outcome of a Job.
type Result struct {
	Job
	Record *core.SimulationRecord
	Err    error
}

// RunFunc executes a single job.
type RunFunc func(ctx context.Context, job Job) (*core.SimulationRecord, error)

// SwarmRunner returns a RunFunc backed by the swarm engine. Each job gets its
// own random source so results do not depend on scheduling.
func SwarmRunner(opts ...swarm.Option) RunFunc {
	return func(ctx context.Context, job Job) (*core.SimulationRecord, error) {
		sim, err := swarm.New(job.Config, rand.New(rand.NewSource(job.Seed)), opts...)
		if err != nil {
			return nil, err
		}
		return sim.Run(ctx)
	}
}

// Jobs builds count jobs with consecutive seeds starting at base. Callers
// bound count; a negative count yields no jobs.
func Jobs(cfg core.SwarmConfig, base int64, count int) []Job {
	if count <= 0 {
		return nil
	}
	jobs := make([]Job, count)
	for i := range jobs {
		jobs[i] = Job{Index: i, Seed: base + int64(i), Config: cfg}
	}
	return jobs
}

// Manager manages worker goroutines
type Manager struct {
	workers int
	run     RunFunc
	log     zerolog.Logger
}

// NewManager creates a new worker manager. workers < 1 uses one worker per CPU.
func NewManager(workers int, run RunFunc, log zerolog.Logger) *Manager {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Manager{workers: workers, run: run, log: log}
}

// Workers returns the pool size.
func (m *Manager) Workers() int { return m.workers }

// Run executes jobs and returns one result per job in job order. Jobs not
// started before ctx is done carry ctx's error, which is also returned.
func (m *Manager) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	n := min(m.workers, len(jobs))
	var wg sync.WaitGroup
	wg.Add(n)
	for w := 0; w < n; w++ {
		go func(w int) {
			defer wg.Done()
			for i := range queue {
				job := jobs[i]
				if err := ctx.Err(); err != nil {
					results[i] = Result{Job: job, Err: err}
					continue
				}
				rec, err := m.run(ctx, job)
				results[i] = Result{Job: job, Record: rec, Err: err}
				if err != nil {
					m.log.Warn().Err(err).Int("worker", w).Int64("seed", job.Seed).Msg("batch job failed")
					continue
				}
				m.log.Debug().Int("worker", w).Int64("seed", job.Seed).Msg("batch job done")
			}
		}(w)
	}
	wg.Wait()

	return results, ctx.Err()
}
