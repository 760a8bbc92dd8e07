// Worker pool execution of planned bins. One worker consumes one bin,
// jobs strictly in assignment order; workers run concurrently up to
// the configured degree.

package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BootstrapFunc runs once per worker before its first job.
type BootstrapFunc func(ctx context.Context, worker int) error

// WorkFunc runs one job. An error is recorded and the worker moves on
// to the next job in its bin; sibling bins are never cancelled. A
// caller that wants a failing bin to stop must track that in its own
// closure.
type WorkFunc func(ctx context.Context, job Job) error

// JobError ties a failure to its bin and job.
type JobError struct {
	Bin int
	Job Job
	Err error
}

func (e JobError) Error() string {
	if e.Job.ID == "" {
		return fmt.Sprintf("bin %d: %v", e.Bin, e.Err)
	}
	return fmt.Sprintf("bin %d job %s: %v", e.Bin, e.Job.ID, e.Err)
}

// Pool executes bins. Zero Concurrency means one worker per bin.
type Pool struct {
	Concurrency int
	Log         *zap.Logger
}

// Run blocks until every bin is drained or ctx is cancelled, and
// returns all recorded job errors. Each executed job gets a uuid so
// log lines from concurrent workers can be correlated.
func (p *Pool) Run(ctx context.Context, bins []Bin, bootstrap BootstrapFunc, work WorkFunc) []JobError {

	degree := p.Concurrency
	if degree <= 0 || degree > len(bins) {
		degree = len(bins)
	}
	if degree == 0 {
		return nil
	}

	sem := make(chan struct{}, degree)

	var mu sync.Mutex
	var errs []JobError
	record := func(bin int, job Job, err error) {
		mu.Lock()
		errs = append(errs, JobError{Bin: bin, Job: job, Err: err})
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := range bins {
		bin := bins[i]
		if len(bin.Jobs) == 0 {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				record(bin.Index, Job{}, ctx.Err())
				return
			}
			defer func() { <-sem }()

			if bootstrap != nil {
				if err := bootstrap(ctx, bin.Index); err != nil {
					record(bin.Index, Job{}, fmt.Errorf("bootstrap: %w", err))
					return
				}
			}

			for _, job := range bin.Jobs {
				if err := ctx.Err(); err != nil {
					record(bin.Index, job, err)
					return
				}

				job_uuid := "job-" + uuid.New().String()
				start := time.Now()

				err := work(ctx, job)

				if p.Log != nil {
					fields := []zap.Field{
						zap.String("uuid", job_uuid),
						zap.String("job", job.ID),
						zap.Int("bin", bin.Index),
						zap.Duration("took", time.Since(start)),
					}
					if err != nil {
						p.Log.Error("job failed", append(fields, zap.Error(err))...)
					} else {
						p.Log.Debug("job done", fields...)
					}
				}

				if err != nil {
					record(bin.Index, job, err)
				}
			}
		}()
	}

	wg.Wait()
	return errs
}
