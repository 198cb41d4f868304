package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"courier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	deliveryRoot := filepath.Join(base, "delivery")
	if err := os.MkdirAll(deliveryRoot, 0o755); err != nil {
		t.Fatalf("mkdir delivery root: %v", err)
	}

	cfgVal := config.Default()
	cfgVal.Tracker.BaseURL = "http://127.0.0.1:0"
	cfgVal.Tracker.ScriptName = "courier-test"
	cfgVal.Tracker.APIKey = "test"
	cfgVal.Tracker.ProjectID = 1
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Roots = map[string]string{"primary": deliveryRoot}
	cfgVal.Templates.ManifestPath = filepath.Join(base, "templates.yml")
	cfgVal.Templates.DeliverySequence = "{ProjectCode}_{Shot}_comp_{Version}.%04d.exr"
	cfgVal.Templates.DeliveryFolder = "{ProjectCode}/{Sequence}/{Shot}/{Version}"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTrackerBaseURL points the tracker client at the provided server.
func WithTrackerBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracker.BaseURL = url
	}
}

// WithDeliveryMode overrides the delivery transfer mode on the test config.
func WithDeliveryMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Delivery.Mode = mode
	}
}

// WithTemplates overrides the inline delivery templates on the test config.
func WithTemplates(sequence, folder string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Templates.DeliverySequence = sequence
		b.cfg.Templates.DeliveryFolder = folder
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// DeliveryRoot returns the default delivery root directory for the config.
func DeliveryRoot(cfg *config.Config) string {
	return cfg.DefaultRootPath()
}
