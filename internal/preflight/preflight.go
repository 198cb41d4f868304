package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/services/shotgrid"
	"courier/internal/template"
)

// minFreeBytes is the free space floor on the delivery root. A full
// volume mid-delivery leaves partial sequences for the client.
const minFreeBytes = 10 << 30

// Check is the outcome of a single preflight verification.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Runner executes preflight checks against a configuration.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracker shotgrid.API
}

// NewRunner constructs a preflight runner. The tracker client may be nil,
// in which case tracker checks report failure instead of panicking.
func NewRunner(cfg *config.Config, logger *slog.Logger, tracker shotgrid.API) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		logger:  logger.With(logging.String(logging.FieldComponent, "preflight")),
		tracker: tracker,
	}
}

// Run executes every check and returns the results in a stable order.
func (r *Runner) Run(ctx context.Context) []Check {
	checks := []Check{
		r.checkTracker(ctx),
		r.checkDeliveryRoot(),
		r.checkFreeSpace(),
		r.checkTemplates(),
	}
	for _, check := range checks {
		if check.OK {
			continue
		}
		r.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
		)
	}
	return checks
}

// Passed reports whether every check in the slice succeeded.
func Passed(checks []Check) bool {
	for _, check := range checks {
		if !check.OK {
			return false
		}
	}
	return true
}

func (r *Runner) checkTracker(ctx context.Context) Check {
	check := Check{Name: "tracker"}
	if r.tracker == nil {
		check.Detail = "tracker client not configured"
		return check
	}
	code, err := r.tracker.ProjectCode(ctx)
	if err != nil {
		check.Detail = fmt.Sprintf("tracker unreachable: %v", err)
		return check
	}
	if strings.TrimSpace(code) == "" {
		check.Detail = fmt.Sprintf("project %d has no %s value", r.cfg.Tracker.ProjectID, r.cfg.Tracker.ProjectCodeField)
		return check
	}
	check.OK = true
	check.Detail = fmt.Sprintf("project %s", code)
	return check
}

func (r *Runner) checkDeliveryRoot() Check {
	check := Check{Name: "delivery_root"}
	root := r.cfg.DefaultRootPath()
	if root == "" {
		check.Detail = fmt.Sprintf("no root named %q configured", r.cfg.Templates.DefaultRoot)
		return check
	}
	info, err := os.Stat(root)
	if err != nil {
		check.Detail = fmt.Sprintf("stat %s: %v", root, err)
		return check
	}
	if !info.IsDir() {
		check.Detail = fmt.Sprintf("%s is not a directory", root)
		return check
	}
	if err := unix.Access(root, unix.W_OK); err != nil {
		check.Detail = fmt.Sprintf("%s is not writable: %v", root, err)
		return check
	}
	check.OK = true
	check.Detail = root
	return check
}

func (r *Runner) checkFreeSpace() Check {
	check := Check{Name: "free_space"}
	root := r.cfg.DefaultRootPath()
	if root == "" {
		check.Detail = "delivery root not configured"
		return check
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		check.Detail = fmt.Sprintf("statfs %s: %v", root, err)
		return check
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		check.Detail = fmt.Sprintf("only %.1f GiB free on %s", float64(free)/(1<<30), root)
		return check
	}
	check.OK = true
	check.Detail = fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))
	return check
}

func (r *Runner) checkTemplates() Check {
	check := Check{Name: "templates"}
	set, err := template.LoadSet(r.cfg)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	fields := map[string]string{
		"ProjectCode": "DEMO",
		"Sequence":    "SEQ010",
		"Shot":        "SEQ010_0010",
		"Version":     template.FormatVersion(1),
	}
	if _, err := set.DeliverySequence.Apply(fields); err != nil {
		check.Detail = fmt.Sprintf("sequence template: %v", err)
		return check
	}
	if _, err := set.DeliveryFolder.Apply(fields); err != nil {
		check.Detail = fmt.Sprintf("folder template: %v", err)
		return check
	}
	check.OK = true
	check.Detail = "templates resolve"
	return check
}
