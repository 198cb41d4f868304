package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"courier/internal/ipc"
	"courier/internal/template"
)

var statusTitler = cases.Title(language.English)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []ipc.QueueItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]ipc.QueueItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			formatShotLabel(item),
			formatVersionLabel(item.VersionNumber),
			formatFrameRange(item.FirstFrame, item.LastFrame),
			formatStatusLabel(item.Status),
			formatProgress(item),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func formatShotLabel(item ipc.QueueItem) string {
	shot := strings.TrimSpace(item.ShotCode)
	if shot == "" {
		return "Unknown"
	}
	return shot
}

func formatVersionLabel(version int) string {
	if version <= 0 {
		return "-"
	}
	return template.FormatVersion(version)
}

func formatFrameRange(first, last int) string {
	if first == 0 && last == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		parts[i] = statusTitler.String(strings.ToLower(part))
	}
	return strings.Join(parts, " ")
}

func formatProgress(item ipc.QueueItem) string {
	switch {
	case item.ProgressMessage != "" && item.ProgressPercent > 0:
		return fmt.Sprintf("%.0f%% %s", item.ProgressPercent, item.ProgressMessage)
	case item.ProgressMessage != "":
		return item.ProgressMessage
	case item.ErrorMessage != "":
		return item.ErrorMessage
	default:
		return ""
	}
}

func renderQueueItemDetail(stdout io.Writer, item *ipc.QueueItem) {
	rows := [][]string{
		{"ID", fmt.Sprintf("%d", item.ID)},
		{"Shot", formatShotLabel(*item)},
		{"Sequence", item.SequenceName},
		{"Project", item.ProjectCode},
		{"Version", formatVersionLabel(item.VersionNumber)},
		{"Frames", formatFrameRange(item.FirstFrame, item.LastFrame)},
		{"Status", formatStatusLabel(item.Status)},
		{"Source Pattern", item.SourcePattern},
		{"Delivery Path", item.DeliveryPath},
		{"Created", formatDisplayTime(item.CreatedAt)},
		{"Updated", formatDisplayTime(item.UpdatedAt)},
	}
	if item.FramesDelivered > 0 {
		rows = append(rows, []string{"Frames Delivered", fmt.Sprintf("%d", item.FramesDelivered)})
	}
	if progress := formatProgress(*item); progress != "" {
		rows = append(rows, []string{"Progress", progress})
	}
	if item.LastHeartbeat != nil {
		rows = append(rows, []string{"Last Heartbeat", formatDisplayTime(*item.LastHeartbeat)})
	}
	if item.NeedsReview {
		reason := item.ReviewReason
		if reason == "" {
			reason = "yes"
		}
		rows = append(rows, []string{"Needs Review", reason})
	}
	if item.ValidationMessage != "" {
		rows = append(rows, []string{"Validation", item.ValidationMessage})
	}
	if item.ErrorMessage != "" {
		rows = append(rows, []string{"Error", item.ErrorMessage})
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"Field", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignLeft},
	))
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04")
}
