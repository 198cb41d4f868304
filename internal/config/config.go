package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tracker contains connection settings for the production-tracking service.
type Tracker struct {
	BaseURL          string `toml:"base_url"`
	ScriptName       string `toml:"script_name"`
	APIKey           string `toml:"api_key"`
	ProjectID        int64  `toml:"project_id"`
	DeliveryStatus   string `toml:"delivery_status"`
	DeliveredStatus  string `toml:"delivered_status"`
	ProjectCodeField string `toml:"project_code_field"`
	RequestTimeout   int    `toml:"request_timeout"`
}

// Templates contains path template configuration. Inline values override the
// manifest when set.
type Templates struct {
	ManifestPath     string `toml:"manifest_path"`
	DefaultRoot      string `toml:"default_root"`
	DeliverySequence string `toml:"delivery_sequence"`
	DeliveryFolder   string `toml:"delivery_folder"`
}

// Delivery contains file transfer behavior.
type Delivery struct {
	Mode            string `toml:"mode"` // "hardlink" or "copy"
	Overwrite       bool   `toml:"overwrite"`
	VerifyChecksums bool   `toml:"verify_checksums"`
}

// Paths contains directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval   int `toml:"queue_poll_interval"`
	TrackerPollInterval int `toml:"tracker_poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	HeartbeatInterval   int `toml:"heartbeat_interval"`
	HeartbeatTimeout    int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Delivery       bool   `toml:"delivery"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for courier.
//
// Configuration sections by subsystem:
//   - Tracker: production-tracking service connection, project, and statuses
//   - Templates: delivery path templates and the named root they resolve under
//   - Roots: named filesystem roots (must include the default root)
//   - Delivery: link-vs-copy mode, overwrite policy, checksum verification
//   - Paths: log directory (also holds the queue database and daemon socket)
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Tracker       Tracker           `toml:"tracker"`
	Templates     Templates         `toml:"templates"`
	Roots         map[string]string `toml:"roots"`
	Delivery      Delivery          `toml:"delivery"`
	Paths         Paths             `toml:"paths"`
	Workflow      Workflow          `toml:"workflow"`
	Logging       Logging           `toml:"logging"`
	Notifications Notifications     `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/courier/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("courier.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// DefaultRootPath returns the filesystem path of the configured default root.
func (c *Config) DefaultRootPath() string {
	return c.Roots[c.Templates.DefaultRoot]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
