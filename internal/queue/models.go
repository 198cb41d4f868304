package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusValidating Status = "validating"
	StatusValidated  Status = "validated"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusFinalizing Status = "finalizing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReview     Status = "review"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusValidating,
	StatusValidated,
	StatusDelivering,
	StatusDelivered,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusValidating: {},
	StatusDelivering: {},
	StatusFinalizing: {},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// ShotInfo carries the tracker metadata needed to enqueue a shot for delivery.
type ShotInfo struct {
	ShotID        int64
	ShotCode      string
	SequenceName  string
	ProjectCode   string
	VersionNumber int
	FirstFrame    int
	LastFrame     int
	SourcePattern string
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID                int64
	ShotID            int64
	ShotCode          string
	SequenceName      string
	ProjectCode       string
	VersionNumber     int
	FirstFrame        int
	LastFrame         int
	SourcePattern     string
	DeliveryPath      string
	Status            Status
	ErrorMessage      string
	ValidationMessage string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	FramesDelivered   int
	LastHeartbeat     *time.Time
	NeedsReview       bool
	ReviewReason      string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// FrameCount returns the total number of frames the item delivers.
func (i Item) FrameCount() int {
	if i.LastFrame < i.FirstFrame {
		return 0
	}
	return i.LastFrame - i.FirstFrame + 1
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsLive reports whether the item still occupies its shot: anything that has
// not finished, failed permanently, or been parked for review.
func (i Item) IsLive() bool {
	return IsLiveStatus(i.Status)
}

// IsLiveStatus reports whether items in the given status still occupy a shot.
func IsLiveStatus(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusReview:
		return false
	default:
		return true
	}
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetReview parks the item for human review with the given reason.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.NeedsReview = true
	i.ReviewReason = reason
	i.ValidationMessage = reason
	i.LastHeartbeat = nil
	i.ProgressStage = "Review"
	i.ProgressMessage = reason
}
