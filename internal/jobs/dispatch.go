package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/budgetiq/internal/logger"
)

// Dispatcher routes jobs to the handler registered for their type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[JobType]JobHandler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[JobType]JobHandler)}
}

// Register sets the handler for t, replacing any previous one.
func (d *Dispatcher) Register(t JobType, h JobHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

// Handle is a JobHandler that dispatches on job.Type.
func (d *Dispatcher) Handle(ctx context.Context, job *Job) error {
	d.mu.RLock()
	h, ok := d.handlers[job.Type]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("job_id", job.JobID).Str("job_type", string(job.Type)).Int("attempt", job.RetryCount+1).Msg("Processing job")

	if err := h(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Job failed")
		return err
	}
	log.Info().Str("job_id", job.JobID).Msg("Job completed")
	return nil
}
