package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateTemplates(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.BaseURL == "" {
		return errors.New("tracker.base_url must be set")
	}
	if c.Tracker.ScriptName == "" {
		return errors.New("tracker.script_name must be set")
	}
	if c.Tracker.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/courier/config.toml"
		}
		return fmt.Errorf("tracker.api_key is required. Set COURIER_TRACKER_KEY env var or edit %s (create with 'courier config init')", defaultPath)
	}
	if c.Tracker.ProjectID <= 0 {
		return errors.New("tracker.project_id must be positive")
	}
	if c.Tracker.DeliveryStatus == c.Tracker.DeliveredStatus {
		return errors.New("tracker.delivery_status and tracker.delivered_status must differ")
	}
	return nil
}

func (c *Config) validateTemplates() error {
	if _, ok := c.Roots[c.Templates.DefaultRoot]; !ok {
		return fmt.Errorf("roots must define the default root %q", c.Templates.DefaultRoot)
	}
	return nil
}

func (c *Config) validateDelivery() error {
	switch c.Delivery.Mode {
	case "hardlink", "copy":
		return nil
	default:
		return fmt.Errorf("delivery.mode must be \"hardlink\" or \"copy\", got %q", c.Delivery.Mode)
	}
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":   c.Workflow.QueuePollInterval,
		"workflow.tracker_poll_interval": c.Workflow.TrackerPollInterval,
		"workflow.error_retry_interval":  c.Workflow.ErrorRetryInterval,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
		"tracker.request_timeout":        c.Tracker.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
