package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier/internal/config"
)

const userAgent = "Courier/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyShotQueued(ctx context.Context, shotCode string, version int) error
	NotifyDeliveryStarted(ctx context.Context, shotCode string, frameCount int) error
	NotifyDeliveryCompleted(ctx context.Context, shotCode, deliveryPath string) error
	NotifyValidationFailed(ctx context.Context, shotCode, reason string) error
	NotifyQueueCompleted(ctx context.Context, delivered, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyShotQueued(ctx context.Context, shotCode string, version int) error {
	shotCode = strings.TrimSpace(shotCode)
	data := payload{
		title:   "Courier - Shot Queued",
		message: fmt.Sprintf("Queued for delivery: %s v%03d", shotCode, version),
		tags:    []string{"courier", "queue", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryStarted(ctx context.Context, shotCode string, frameCount int) error {
	shotCode = strings.TrimSpace(shotCode)
	data := payload{
		title:   "Courier - Delivery Started",
		message: fmt.Sprintf("Started delivering: %s (%d frames)", shotCode, frameCount),
		tags:    []string{"courier", "delivery", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryCompleted(ctx context.Context, shotCode, deliveryPath string) error {
	shotCode = strings.TrimSpace(shotCode)
	deliveryPath = strings.TrimSpace(deliveryPath)
	message := fmt.Sprintf("Delivered: %s", shotCode)
	if deliveryPath != "" {
		message = fmt.Sprintf("%s\nPath: %s", message, deliveryPath)
	}
	data := payload{
		title:    "Courier - Delivered",
		message:  message,
		tags:     []string{"courier", "delivery", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyValidationFailed(ctx context.Context, shotCode, reason string) error {
	shotCode = strings.TrimSpace(shotCode)
	reason = strings.TrimSpace(reason)
	data := payload{
		title:   "Courier - Validation Failed",
		message: fmt.Sprintf("Cannot deliver %s: %s\nManual review required", shotCode, reason),
		tags:    []string{"courier", "validation", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, delivered, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Courier - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d shots delivered in %s", delivered, durationText)
	} else {
		title = "Courier - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d delivered, %d failed in %s", delivered, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"courier", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Courier - Error",
		message:  builder.String(),
		tags:     []string{"courier", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Courier - Test",
		message:  "Notification system test",
		tags:     []string{"courier", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyShotQueued(context.Context, string, int) error                 { return nil }
func (noopService) NotifyDeliveryStarted(context.Context, string, int) error            { return nil }
func (noopService) NotifyDeliveryCompleted(context.Context, string, string) error       { return nil }
func (noopService) NotifyValidationFailed(context.Context, string, string) error        { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
