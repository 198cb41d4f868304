package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"courier/internal/logging"
	"courier/internal/queue"
)

// HeartbeatMonitor keeps processing items fresh and reclaims ones whose
// owner stopped heartbeating, typically after a crash or forced shutdown.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor constructs a heartbeat monitor for the given store.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger.With(logging.String(logging.FieldComponent, "heartbeat-monitor")),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleItems rolls back processing items whose heartbeat is older
// than the configured timeout so the queue can pick them up again.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	if logger == nil {
		logger = h.logger
	}

	cutoff := time.Now().UTC().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Warn("reclaimed stale processing items",
			logging.Int64("reclaimed", reclaimed),
			logging.Duration("heartbeat_timeout", h.heartbeatTimeout),
			logging.String(logging.FieldEventType, "stale_items_reclaimed"),
		)
	}
	return nil
}

// StartLoop refreshes the heartbeat for itemID until ctx is cancelled.
// It is intended to run as a goroutine alongside a stage Execute call.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64) {
	defer wg.Done()

	if h.heartbeatInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("failed to refresh item heartbeat",
					logging.Int64(logging.FieldItemID, itemID),
					logging.Error(err),
				)
			}
		}
	}
}
