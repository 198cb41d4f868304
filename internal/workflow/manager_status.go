package workflow

import (
	"context"

	"courier/internal/queue"
	"courier/internal/stage"
)

// StatusSummary is a point-in-time snapshot of the workflow for status
// reporting over IPC and in the CLI.
type StatusSummary struct {
	Running     bool           `json:"running"`
	LastError   string         `json:"last_error,omitempty"`
	LastItem    *queue.Item    `json:"last_item,omitempty"`
	QueueStats  map[string]int `json:"queue_stats"`
	StageHealth []stage.Health `json:"stage_health"`
}

// Status reports the current workflow state, queue counts, and per-stage health.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:  m.running,
		LastItem: m.lastItem,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	stages := m.stages
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err == nil {
		summary.QueueStats = make(map[string]int, len(stats))
		for status, count := range stats {
			summary.QueueStats[string(status)] = count
		}
	}

	summary.StageHealth = make([]stage.Health, 0, len(stages))
	for _, stg := range stages {
		if stg.handler == nil {
			summary.StageHealth = append(summary.StageHealth, stage.Unhealthy(stg.name, "handler not configured"))
			continue
		}
		summary.StageHealth = append(summary.StageHealth, stg.handler.HealthCheck(ctx))
	}
	return summary
}

// Running reports whether the background loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	if item == nil {
		return
	}
	snapshot := *item
	m.mu.Lock()
	m.lastItem = &snapshot
	m.mu.Unlock()
}
