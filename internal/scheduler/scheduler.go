package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// JobFunc is one scheduled unit of work. A returned error is logged, never
// fatal to the scheduler: the next fire time is still computed and the
// job runs again on its own cadence.
type JobFunc func(ctx context.Context) error

// Job pairs a name and cadence with the work it runs.
type Job struct {
	Name     string
	Schedule Schedule
	Run      JobFunc
}

// Scheduler drives a fixed table of Jobs, each on its own goroutine, each
// guaranteed not to overlap itself: a job's next fire time is computed
// only once its current Run call has returned.
type Scheduler struct {
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Scheduler over the given jobs. It does not start them.
func New(jobs []Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start launches one goroutine per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}
}

// Stop cancels every job's context and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	defer s.wg.Done()

	next := j.Schedule.Next(time.Now())
	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := j.Run(ctx); err != nil {
			logger.Error("scheduled job failed", "job", j.Name, "error", err.Error())
		}
		next = j.Schedule.Next(time.Now())
	}
}
