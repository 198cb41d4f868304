package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTracker(); err != nil {
		return err
	}
	if err := c.normalizeTemplates(); err != nil {
		return err
	}
	if err := c.normalizeRoots(); err != nil {
		return err
	}
	c.normalizeDelivery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() error {
	c.Tracker.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tracker.BaseURL), "/")
	c.Tracker.ScriptName = strings.TrimSpace(c.Tracker.ScriptName)
	c.Tracker.APIKey = strings.TrimSpace(c.Tracker.APIKey)
	if c.Tracker.APIKey == "" {
		if key, ok := os.LookupEnv("COURIER_TRACKER_KEY"); ok {
			c.Tracker.APIKey = strings.TrimSpace(key)
		}
	}
	c.Tracker.DeliveryStatus = strings.TrimSpace(c.Tracker.DeliveryStatus)
	if c.Tracker.DeliveryStatus == "" {
		c.Tracker.DeliveryStatus = defaultDeliveryStatus
	}
	c.Tracker.DeliveredStatus = strings.TrimSpace(c.Tracker.DeliveredStatus)
	if c.Tracker.DeliveredStatus == "" {
		c.Tracker.DeliveredStatus = defaultDeliveredStatus
	}
	c.Tracker.ProjectCodeField = strings.TrimSpace(c.Tracker.ProjectCodeField)
	if c.Tracker.ProjectCodeField == "" {
		c.Tracker.ProjectCodeField = defaultProjectCodeField
	}
	if c.Tracker.RequestTimeout <= 0 {
		c.Tracker.RequestTimeout = defaultTrackerTimeout
	}
	return nil
}

func (c *Config) normalizeTemplates() error {
	var err error
	if strings.TrimSpace(c.Templates.ManifestPath) == "" {
		c.Templates.ManifestPath = defaultManifestPath
	}
	if c.Templates.ManifestPath, err = expandPath(c.Templates.ManifestPath); err != nil {
		return fmt.Errorf("templates.manifest_path: %w", err)
	}
	c.Templates.DefaultRoot = strings.TrimSpace(c.Templates.DefaultRoot)
	if c.Templates.DefaultRoot == "" {
		c.Templates.DefaultRoot = defaultRootName
	}
	c.Templates.DeliverySequence = strings.TrimSpace(c.Templates.DeliverySequence)
	c.Templates.DeliveryFolder = strings.TrimSpace(c.Templates.DeliveryFolder)
	return nil
}

func (c *Config) normalizeRoots() error {
	if c.Roots == nil {
		c.Roots = map[string]string{}
	}
	for name, path := range c.Roots {
		expanded, err := expandPath(strings.TrimSpace(path))
		if err != nil {
			return fmt.Errorf("roots.%s: %w", name, err)
		}
		c.Roots[name] = expanded
	}
	return nil
}

func (c *Config) normalizeDelivery() {
	c.Delivery.Mode = strings.ToLower(strings.TrimSpace(c.Delivery.Mode))
	if c.Delivery.Mode == "" {
		c.Delivery.Mode = defaultDeliveryMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
