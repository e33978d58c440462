package sessions

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunJanitor deletes expired sessions every interval until ctx is done.
func RunJanitor(ctx context.Context, repo Repo, ttl, interval time.Duration, logger *zap.Logger) error {
	if ttl <= 0 || interval <= 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sweep(ctx, repo, time.Now().Add(-ttl), logger)
		}
	}
}

func sweep(ctx context.Context, repo Repo, before time.Time, logger *zap.Logger) {
	n, err := repo.DeleteExpired(ctx, before)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("sessions.sweep_failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		logger.Debug("sessions.swept", zap.Int64("deleted", n))
	}
}
