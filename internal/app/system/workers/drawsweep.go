// internal/app/system/workers/drawsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"go.uber.org/zap"
)

// SweepRunner runs one scheduler sweep. *draws.Sweeper implements it.
type SweepRunner interface {
	Run(ctx context.Context, now time.Time) (draws.SweepResult, error)
}

// DrawSweep is a background worker that runs the scheduled-draw sweep on a
// fixed interval. It complements the external cron endpoint for single-node
// deployments.
type DrawSweep struct {
	sweeper  SweepRunner
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDrawSweep creates the worker. timeout bounds each sweep; zero means
// interval.
func NewDrawSweep(sweeper SweepRunner, logger *zap.Logger, interval, timeout time.Duration) *DrawSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &DrawSweep{
		sweeper:  sweeper,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (w *DrawSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("draw sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("timeout", w.timeout))
}

// Stop signals the worker to stop and waits for an in-flight sweep to end.
func (w *DrawSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("draw sweep worker stopped")
}

func (w *DrawSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *DrawSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Stop cancels a sweep in progress; unstarted groups are reported skipped.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := w.sweeper.Run(ctx, w.now().UTC())
	if err != nil {
		w.log.Error("draw sweep failed", zap.Error(err))
		return
	}
	if res.GroupsChecked > 0 {
		w.log.Info("draw sweep finished",
			zap.Int("checked", res.GroupsChecked),
			zap.Int("executed", res.DrawsExecuted),
			zap.Int("failed", res.DrawsFailed),
			zap.Int("skipped", res.GroupsSkipped))
	}
}
