package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// runJanitor deletes expired login records every period until ctx is done.
func runJanitor(ctx context.Context, s sweeper, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Warn("login sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("login sweep", zap.Int64("deleted", n))
			}
		}
	}
}
