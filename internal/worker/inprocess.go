package worker

import (
	"context"
	"sync"
	"time"

	"shopfeeds/internal/logger"
	"shopfeeds/internal/worker/processors"
)

// InProcess runs build events on goroutines of the current process. The api
// uses it when no Kafka brokers are configured.
type InProcess struct {
	ctx     context.Context
	logger  *logger.Logger
	handler Handler
	wg      sync.WaitGroup
}

// NewInProcess returns a dispatcher whose builds run under ctx, so cancelling
// ctx aborts every running build.
func NewInProcess(ctx context.Context, logger *logger.Logger, handler Handler) *InProcess {
	return &InProcess{ctx: ctx, logger: logger.Named("inprocess"), handler: handler}
}

// Publish starts the build and returns at once.
func (d *InProcess) Publish(_ context.Context, event processors.Event) error {
	if event.Type == "" {
		event.Type = processors.EventBuildRequested
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler.Process(d.ctx, event); err != nil {
			d.logger.Error("Build %s failed: %v", event.BuildID, err)
		}
	}()
	return nil
}

// Wait blocks until every started build returned.
func (d *InProcess) Wait() {
	d.wg.Wait()
}
