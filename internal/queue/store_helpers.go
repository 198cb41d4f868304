package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, shot_id, shot_code, sequence_name, project_code, version_number, first_frame, last_frame, source_pattern, delivery_path, status, error_message, validation_message, created_at, updated_at, progress_stage, progress_percent, progress_message, frames_delivered, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id                int64
		shotID            int64
		shotCode          string
		sequenceName      sql.NullString
		projectCode       sql.NullString
		versionNumber     int
		firstFrame        int
		lastFrame         int
		sourcePattern     sql.NullString
		deliveryPath      sql.NullString
		statusStr         string
		errorMessage      sql.NullString
		validationMessage sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
		progressStage     sql.NullString
		progressPercent   sql.NullFloat64
		progressMessage   sql.NullString
		framesDelivered   sql.NullInt64
		lastHeartbeatRaw  sql.NullString
		needsReview       sql.NullInt64
		reviewReason      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&shotID,
		&shotCode,
		&sequenceName,
		&projectCode,
		&versionNumber,
		&firstFrame,
		&lastFrame,
		&sourcePattern,
		&deliveryPath,
		&statusStr,
		&errorMessage,
		&validationMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&framesDelivered,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		ShotID:            shotID,
		ShotCode:          shotCode,
		SequenceName:      sequenceName.String,
		ProjectCode:       projectCode.String,
		VersionNumber:     versionNumber,
		FirstFrame:        firstFrame,
		LastFrame:         lastFrame,
		SourcePattern:     sourcePattern.String,
		DeliveryPath:      deliveryPath.String,
		Status:            Status(statusStr),
		ErrorMessage:      errorMessage.String,
		ValidationMessage: validationMessage.String,
		ProgressStage:     progressStage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
	}
	if framesDelivered.Valid {
		item.FramesDelivered = int(framesDelivered.Int64)
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}
	item.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
