package background

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/akumi07/RoleMaster21/internal/metrics"
)

const (
	defaultCleanupInterval = 15 * time.Minute
	cleanupPassTimeout     = 30 * time.Second
)

// ChallengePurger removes one-time code challenges whose window has closed
type ChallengePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired OTP challenges. Stores that
// expire keys on their own report zero rows and the pass is a no-op.
type CleanupManager struct {
	purger   ChallengePurger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewCleanupManager(purger ChallengePurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &CleanupManager{
		purger:   purger,
		logger:   logger.With(slog.String("worker", "otp_cleanup")),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval, until Stop is
// called or ctx ends. It blocks.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.logger.Info("cleanup worker started", slog.Duration("interval", cm.interval))
	cm.pass(ctx)

	for {
		select {
		case <-ticker.C:
			cm.pass(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup worker stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup worker context done")
			return
		}
	}
}

func (cm *CleanupManager) pass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, cleanupPassTimeout)
	defer cancel()

	purged, err := cm.purger.PurgeExpired(passCtx)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		cm.logger.Error("failed to purge expired challenges", slog.Any("error", err))
		return
	}

	metrics.CleanupRunsTotal.WithLabelValues("ok").Inc()
	metrics.OTPChallengesPurgedTotal.Add(float64(purged))
	if purged > 0 {
		cm.logger.Info("expired challenges purged", slog.Int64("rows_deleted", purged))
	}
}

// Stop signals the worker to return. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		close(cm.stopCh)
	})
}
