package finalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services"
	"courier/internal/services/shotgrid"
	"courier/internal/stage"
)

// Finalizer records a completed delivery in the tracker.
type Finalizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	tracker  shotgrid.API
	notifier notifications.Service
}

// NewFinalizer constructs the finalize stage handler.
func NewFinalizer(cfg *config.Config, store *queue.Store, logger *slog.Logger, tracker shotgrid.API, notifier notifications.Service) *Finalizer {
	return &Finalizer{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "finalizer"),
		tracker:  tracker,
		notifier: notifier,
	}
}

func (f *Finalizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Finalizing"
	}
	item.ProgressMessage = "Preparing status update"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting finalize preparation",
		logging.String(logging.FieldShot, item.ShotCode),
		logging.String("delivery_path", strings.TrimSpace(item.DeliveryPath)),
	)
	return nil
}

func (f *Finalizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)

	if item.FramesDelivered < item.FrameCount() {
		return services.Wrap(
			services.ErrValidation,
			"finalizing",
			"check delivered frames",
			fmt.Sprintf("%s delivered %d of %d frames; re-run delivery before finalizing", item.ShotCode, item.FramesDelivered, item.FrameCount()),
			nil,
		)
	}

	status := f.cfg.Tracker.DeliveredStatus
	f.updateProgress(ctx, item, fmt.Sprintf("Updating tracker status to %s", status), 50)
	if err := f.tracker.UpdateShotStatus(ctx, item.ShotID, status); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"finalizing",
			"update shot status",
			fmt.Sprintf("Failed to set %s to %s in the tracker", item.ShotCode, status),
			err,
		)
	}
	logger.Info(
		"shot status updated",
		logging.String(logging.FieldShot, item.ShotCode),
		logging.String("status", status),
	)

	f.updateProgress(ctx, item, "Delivery finalized", 100)
	item.ProgressMessage = fmt.Sprintf("Delivered and marked %s", status)

	if f.notifier != nil {
		if err := f.notifier.NotifyDeliveryCompleted(ctx, item.ShotCode, item.DeliveryPath); err != nil {
			logger.Warn("delivery completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies the tracker client and target status are configured.
func (f *Finalizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "finalizer"
	if f.tracker == nil {
		return stage.Unhealthy(name, "tracker client not configured")
	}
	if strings.TrimSpace(f.cfg.Tracker.DeliveredStatus) == "" {
		return stage.Unhealthy(name, "delivered status missing")
	}
	return stage.Healthy(name)
}

func (f *Finalizer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	item.SetProgress("Finalizing", message, percent)
	if f.store == nil {
		return
	}
	if err := f.store.UpdateProgress(ctx, item); err != nil {
		logging.WithContext(ctx, f.logger).Warn("failed to persist finalize progress", logging.Error(err))
	}
}
