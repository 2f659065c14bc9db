package weft

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/weftlabs/weft/pkg/api"
)

// Dispatcher runs workflows asynchronously with bounded concurrency.
// Engine.Run is synchronous; Dispatcher is the piece that turns an inbound
// event into a background run without letting a burst of webhooks spawn an
// unbounded number of goroutines.
//
// Typical usage:
//
//	disp := weft.NewDispatcher(eng, 8, logger)
//	_ = disp.Submit(ctx, "signup-alerts", event)
//	...
//	disp.Shutdown(ctx)
type Dispatcher struct {
	engine Engine
	logger *slog.Logger
	sem    chan struct{}

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher creates a Dispatcher allowing up to maxConcurrent
// simultaneous runs (minimum 1). logger nil means slog.Default().
func NewDispatcher(eng Engine, maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		engine: eng,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Submit schedules a workflow run. It blocks while all run slots are busy,
// honoring ctx; the run itself proceeds on a fresh background context so
// it outlives the caller. Run failures are logged, not returned — the
// execution record carries the outcome.
func (d *Dispatcher) Submit(ctx context.Context, workflowID string, event api.TriggerEvent) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return errors.New("weft: dispatcher is shut down")
	}
	d.wg.Add(1)
	d.mu.Unlock()

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		d.wg.Done()
		return ctx.Err()
	}

	go func() {
		defer func() {
			<-d.sem
			d.wg.Done()
		}()
		if _, err := d.engine.Run(context.Background(), workflowID, event); err != nil {
			d.logger.Error("dispatched run failed to start",
				slog.String("workflow_id", workflowID),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting new runs and waits for in-flight runs to
// finish, or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
