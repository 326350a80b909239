// Package jobs runs the marketplace's background work on a cron schedule.
// Jobs execute with panic recovery so one bad run never takes the scheduler
// down with it.
package jobs

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of background work.
type Job interface {
	// Name identifies the job in logs.
	Name() string
	// Run performs one execution.
	Run(ctx context.Context) error
}

// Runner owns the cron scheduler and the registered jobs. Specs use the
// six-field form with a seconds column, evaluated in UTC.
type Runner struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
}

// NewRunner builds a Runner. timeout bounds each job execution; zero means
// ten minutes.
func NewRunner(log zerolog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
		),
		log:     log,
		timeout: timeout,
	}
}

// Register schedules j under the given cron spec.
func (r *Runner) Register(spec string, j Job) error {
	_, err := r.cron.AddFunc(spec, func() { r.runOne(j) })
	return err
}

// Start begins executing schedules. It returns immediately.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info().Msg("job runner started")
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info().Msg("job runner stopped")
}

// RunNow executes j once outside its schedule, with the same recovery and
// timeout as scheduled runs. Used at startup to catch up after downtime.
func (r *Runner) RunNow(j Job) {
	r.runOne(j)
}

func (r *Runner) runOne(j Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("job", j.Name()).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		r.log.Error().
			Str("job", j.Name()).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("job failed")
		return
	}
	r.log.Info().
		Str("job", j.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("job finished")
}
