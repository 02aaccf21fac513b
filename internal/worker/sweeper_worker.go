package worker

import (
	"context"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/observability"
	"github.com/kipsangc/ramphub/internal/service"
	"go.uber.org/zap"
)

// SweeperWorker periodically fails out stale pending transactions.
type SweeperWorker struct {
	svc      *service.SweeperService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeperWorker constructs a worker with a default five minute interval.
func NewSweeperWorker(svc *service.SweeperService) *SweeperWorker {
	return &SweeperWorker{
		svc:      svc,
		interval: 5 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *SweeperWorker) WithInterval(interval time.Duration) *SweeperWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and runs the sweep at the configured interval.
func (w *SweeperWorker) Start(ctx context.Context) {
	zap.L().Info("sweeper worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("sweeper worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("sweeper worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *SweeperWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *SweeperWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *SweeperWorker) runOnce(ctx context.Context) {
	if err := w.svc.Run(ctx); err != nil {
		observability.IncWorkerRun("sweeper", "failed")
		zap.L().Error("sweep run failed", zap.Error(err))
		return
	}
	observability.IncWorkerRun("sweeper", "success")
}
