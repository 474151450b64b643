package recurring

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner invokes Service.RunDue on a cron schedule.
type Runner struct {
	svc      *Service
	schedule string
	log      zerolog.Logger

	cron *cron.Cron
	// running guards against overlapping passes when one outlasts the interval.
	running sync.Mutex
}

// NewRunner creates a runner for schedule (standard cron spec or descriptor such as "@hourly").
func NewRunner(svc *Service, schedule string, log zerolog.Logger) *Runner {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Runner{
		svc:      svc,
		schedule: schedule,
		log:      log,
		cron:     cron.New(),
	}
}

// Start registers the job and starts the scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.tick(ctx) }); err != nil {
		return fmt.Errorf("Start: invalid schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info().Str("schedule", r.schedule).Msg("Recurring runner started")
	return nil
}

// Stop stops the scheduler and waits for a running pass, or for ctx.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) tick(ctx context.Context) {
	if !r.running.TryLock() {
		r.log.Warn().Msg("Previous recurring pass still running, skipping")
		return
	}
	defer r.running.Unlock()

	if _, err := r.svc.RunDue(ctx); err != nil {
		r.log.Error().Err(err).Msg("Recurring pass failed")
	}
}
