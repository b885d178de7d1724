// Package timeouts holds the request and background deadlines used across
// the draw service.
//
//   - Ping: health checks
//   - Short: single-document reads such as "who did I draw"
//   - Draw: one ExecuteDraw or ResetDraw including its transaction
//   - Sweep: the wall-clock budget for one scheduler sweep
//   - Fanout: notification delivery after a draw commits
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultDraw   = 30 * time.Second
	DefaultSweep  = 55 * time.Second
	DefaultFanout = 30 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Draw   time.Duration
	Sweep  time.Duration
	Fanout time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Draw:   DefaultDraw,
		Sweep:  DefaultSweep,
		Fanout: DefaultFanout,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func Ping() time.Duration   { return get().Ping }
func Short() time.Duration  { return get().Short }
func Draw() time.Duration   { return get().Draw }
func Sweep() time.Duration  { return get().Sweep }
func Fanout() time.Duration { return get().Fanout }

func get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure overrides the non-zero fields of cfg. Call it once during
// startup, before handlers or workers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		cur.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		cur.Short = cfg.Short
	}
	if cfg.Draw > 0 {
		cur.Draw = cfg.Draw
	}
	if cfg.Sweep > 0 {
		cur.Sweep = cfg.Sweep
	}
	if cfg.Fanout > 0 {
		cur.Fanout = cfg.Fanout
	}
}

// Reset restores the defaults. Tests use it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

// Current returns a copy of the active values, for startup logging.
func Current() Config { return get() }

// WithTimeout wraps context.WithTimeout and logs when the deadline, rather
// than the caller, ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
