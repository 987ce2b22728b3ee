package background

import (
	"context"
	"log/slog"
	"time"
)

// AuditPruneStore deletes audit rows older than the cutoff.
type AuditPruneStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionManager periodically removes audit entries past the retention
// window. Compliance retention is measured in days, so the interval between
// passes is coarse.
type RetentionManager struct {
	store     AuditPruneStore
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	stopCh    chan struct{}
}

// NewRetentionManager creates a new retention manager
func NewRetentionManager(
	store AuditPruneStore,
	logger *slog.Logger,
	retentionDays int,
	interval time.Duration,
) *RetentionManager {
	return &RetentionManager{
		store:     store,
		logger:    logger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic prune task
func (rm *RetentionManager) Start(ctx context.Context) {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	rm.runPrune(ctx)

	for {
		select {
		case <-ticker.C:
			rm.runPrune(ctx)
		case <-rm.stopCh:
			rm.logger.Info("audit retention manager stopped")
			return
		case <-ctx.Done():
			rm.logger.Info("audit retention manager context cancelled")
			return
		}
	}
}

func (rm *RetentionManager) runPrune(ctx context.Context) {
	pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-rm.retention)
	rowsDeleted, err := rm.store.DeleteOlderThan(pruneCtx, cutoff)
	if err != nil {
		rm.logger.Error("failed to prune audit logs", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		rm.logger.Info("audit log prune completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the retention manager to stop
func (rm *RetentionManager) Stop() {
	close(rm.stopCh)
}
