package workflow

import (
	"context"
	"time"

	"courier/internal/logging"
	"courier/internal/queue"
)

// onItemStarted marks the queue as actively processing so a completion
// notification can be sent once everything drains.
func (m *Manager) onItemStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
}

// checkQueueCompletion sends a queue summary notification when no live
// items remain after an active run.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.RLock()
	active := m.queueActive
	started := m.queueStart
	m.mu.RUnlock()
	if !active {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Debug("queue completion check failed", logging.Error(err))
		return
	}

	live := 0
	for status, count := range stats {
		if queue.IsLiveStatus(status) {
			live += count
		}
	}
	if live > 0 {
		return
	}

	m.mu.Lock()
	m.queueActive = false
	m.mu.Unlock()

	delivered := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed] + stats[queue.StatusReview]
	duration := time.Since(started)

	m.logger.Info("queue drained",
		logging.String(logging.FieldEventType, "queue_completed"),
		logging.Int("delivered", delivered),
		logging.Int("failed", failed),
		logging.Duration("duration", duration),
	)

	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyQueueCompleted(ctx, delivered, failed, duration); err != nil {
		m.logger.Debug("queue completion notification failed", logging.Error(err))
	}
}
