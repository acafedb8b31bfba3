// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// JobID identifies a registered job.
type JobID = cron.EntryID

// Options tunes a single job.
type Options struct {
	// Name appears in log records for the job.
	Name string
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
}

// Scheduler wraps robfig/cron with slog reporting, panic containment and
// graceful shutdown. Runs of the same job never overlap; a tick that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a scheduler bound to the parent context. Schedules use the
// standard five-field cron syntax plus descriptors like "@every 5m".
func New(parent context.Context, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DiscardLogger)),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. Overlapping runs are skipped.
func (s *Scheduler) Add(schedule string, job JobFunc, opts Options) (JobID, error) {
	name := opts.Name
	if name == "" {
		name = "unnamed"
	}

	var running sync.Mutex
	id, err := s.cron.AddFunc(schedule, func() {
		if !running.TryLock() {
			s.log.Debug("job still running, tick skipped", slog.String("job", name))
			return
		}
		defer running.Unlock()
		s.run(name, job, opts.Timeout)
	})
	if err != nil {
		return 0, fmt.Errorf("scheduler: add %q: %w", name, err)
	}

	s.log.Info("job scheduled", slog.String("job", name), slog.String("schedule", schedule))
	return id, nil
}

// Start begins dispatching jobs. Safe to call once.
func (s *Scheduler) Start() {
	s.cron.Start()
	go func() {
		<-s.ctx.Done()
		s.stopOnce.Do(s.drain)
	}()
}

// Stop cancels the scheduler and waits for in-flight jobs, honoring the
// given deadline context.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.stopOnce.Do(s.drain)
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) drain() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(name string, job JobFunc, timeout time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("job panicked", slog.String("job", name), slog.Any("panic", rec))
		}
	}()

	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	dur := time.Since(start)

	if err != nil {
		s.log.Error("job failed",
			slog.String("job", name),
			slog.Duration("dur", dur),
			slog.Any("err", err))
		return
	}
	s.log.Debug("job done", slog.String("job", name), slog.Duration("dur", dur))
}
