package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Runner drives a Source and logs while the source is idle.
type Runner struct {
	Source       Source
	Handle       func(Message)
	IdleInterval time.Duration
	Logger       *slog.Logger

	seen atomic.Bool
}

// Run blocks until the source stops.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.IdleInterval > 0 {
		go r.watchIdle(ctx)
	}

	return r.Source.Run(ctx, func(m Message) {
		r.seen.Store(true)
		r.Handle(m)
	})
}

func (r *Runner) watchIdle(ctx context.Context) {
	ticker := time.NewTicker(r.IdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.seen.Swap(false) {
				r.logger().Info("waiting for messages...")
			}
		}
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
