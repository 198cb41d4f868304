package workflow

import (
	"context"
	"log/slog"
	"strings"

	"courier/internal/logging"
	"courier/internal/queue"
	"courier/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	message := failureMessage(stageErr)
	status := services.FailureStatus(stageErr)

	if status == queue.StatusReview {
		item.SetReview(message)
	} else {
		item.SetFailed(message)
	}

	failLogger := logging.WithContext(ctx, m.logger).With(
		logging.String(logging.FieldShot, item.ShotCode),
	)
	failLogger.Error("stage failed",
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failed"),
		logging.String("stage_name", stageName),
		logging.String("resolution", string(status)),
	)

	if err := m.store.Update(ctx, item); err != nil {
		failLogger.Error("failed to persist stage failure", logging.Error(err))
	}
	m.setLastItem(item)
	m.notifyStageError(ctx, failLogger, stageName, item, stageErr, status)
	m.checkQueueCompletion(ctx)
}

func (m *Manager) notifyStageError(ctx context.Context, failLogger *slog.Logger, stageName string, item *queue.Item, stageErr error, status queue.Status) {
	if m.notifier == nil {
		return
	}
	// Validation stages send their own review notifications.
	if status == queue.StatusReview {
		return
	}
	label := item.ShotCode
	if label == "" {
		label = stageName
	}
	if err := m.notifier.NotifyError(ctx, stageErr, label); err != nil {
		failLogger.Debug("error notification failed", logging.Error(err))
	}
}

func failureMessage(err error) string {
	if err == nil {
		return "unknown stage failure"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "unknown stage failure"
	}
	return message
}
