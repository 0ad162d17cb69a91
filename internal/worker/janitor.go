package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/push-dispatch/internal/repository"
)

// Janitor periodically purges queued events older than the retention window.
//
// The pipeline deletes every row it consumes, but rows written with payloads
// no invocation ever acknowledges (a malformed trigger, a producer racing a
// deploy) would otherwise sit in the table forever.
type Janitor struct {
	events    repository.EventRepository
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

func NewJanitor(
	events repository.EventRepository,
	interval time.Duration,
	retention time.Duration,
	logger *zap.Logger,
) *Janitor {
	return &Janitor{events: events, interval: interval, retention: retention, logger: logger}
}

// Run ticks every interval and purges aged rows.
// Stops cleanly when ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("event janitor started",
		zap.Duration("interval", j.interval),
		zap.Duration("retention", j.retention),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("event janitor stopping")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)

	n, err := j.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("janitor sweep error", zap.Error(err))
		return
	}

	if n > 0 {
		j.logger.Info("purged stale queued events", zap.Int64("count", n))
	}
}
