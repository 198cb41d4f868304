package ipc

import (
	"time"

	"courier/internal/preflight"
	"courier/internal/queue"
	"courier/internal/stage"
)

// QueueItem is the wire representation of a queue entry.
type QueueItem struct {
	ID                int64      `json:"id"`
	ShotID            int64      `json:"shot_id"`
	ShotCode          string     `json:"shot_code"`
	SequenceName      string     `json:"sequence_name"`
	ProjectCode       string     `json:"project_code"`
	VersionNumber     int        `json:"version_number"`
	FirstFrame        int        `json:"first_frame"`
	LastFrame         int        `json:"last_frame"`
	SourcePattern     string     `json:"source_pattern"`
	DeliveryPath      string     `json:"delivery_path"`
	Status            string     `json:"status"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	ValidationMessage string     `json:"validation_message,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ProgressStage     string     `json:"progress_stage,omitempty"`
	ProgressPercent   float64    `json:"progress_percent"`
	ProgressMessage   string     `json:"progress_message,omitempty"`
	FramesDelivered   int        `json:"frames_delivered"`
	LastHeartbeat     *time.Time `json:"last_heartbeat,omitempty"`
	NeedsReview       bool       `json:"needs_review"`
	ReviewReason      string     `json:"review_reason,omitempty"`
}

// FromItem converts a queue item to its wire representation.
func FromItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	return QueueItem{
		ID:                item.ID,
		ShotID:            item.ShotID,
		ShotCode:          item.ShotCode,
		SequenceName:      item.SequenceName,
		ProjectCode:       item.ProjectCode,
		VersionNumber:     item.VersionNumber,
		FirstFrame:        item.FirstFrame,
		LastFrame:         item.LastFrame,
		SourcePattern:     item.SourcePattern,
		DeliveryPath:      item.DeliveryPath,
		Status:            string(item.Status),
		ErrorMessage:      item.ErrorMessage,
		ValidationMessage: item.ValidationMessage,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
		ProgressStage:     item.ProgressStage,
		ProgressPercent:   item.ProgressPercent,
		ProgressMessage:   item.ProgressMessage,
		FramesDelivered:   item.FramesDelivered,
		LastHeartbeat:     item.LastHeartbeat,
		NeedsReview:       item.NeedsReview,
		ReviewReason:      item.ReviewReason,
	}
}

// StageHealth describes readiness of a workflow stage.
type StageHealth = stage.Health

// PreflightCheck mirrors a preflight verification result.
type PreflightCheck = preflight.Check

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool             `json:"running"`
	QueueStats  map[string]int   `json:"queue_stats"`
	LastError   string           `json:"last_error"`
	LastItem    *QueueItem       `json:"last_item"`
	LockPath    string           `json:"lock_path"`
	QueueDBPath string           `json:"queue_db_path"`
	StageHealth []StageHealth    `json:"stage_health"`
	Preflight   []PreflightCheck `json:"preflight"`
	PID         int              `json:"pid"`
}

// ScanRequest triggers an immediate tracker scan.
type ScanRequest struct{}

// ScanResponse reports the number of newly queued shots.
type ScanResponse struct {
	Queued int `json:"queued"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest fetches a single queue item by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Item QueueItem `json:"item"`
}

// QueueClearRequest removes all items.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed items.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed items.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest rolls in-flight items back to their previous status.
type QueueResetRequest struct{}

// QueueResetResponse reports number of items reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed items. Empty list means all failed items.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried items.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRemoveRequest removes specific items by ID.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalItems       int    `json:"total_items"`
	Error            string `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
