package validation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"courier/internal/config"
	"courier/internal/frames"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services"
	"courier/internal/services/shotgrid"
	"courier/internal/stage"
)

var movieExtensions = map[string]struct{}{
	".mov": {},
	".mp4": {},
	".mxf": {},
	".avi": {},
}

// Validator confirms a shot's published frames are complete and deliverable.
type Validator struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	tracker  shotgrid.API
	notifier notifications.Service
}

// NewValidator constructs the validation stage handler.
func NewValidator(cfg *config.Config, store *queue.Store, logger *slog.Logger, tracker shotgrid.API, notifier notifications.Service) *Validator {
	return &Validator{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "validator"),
		tracker:  tracker,
		notifier: notifier,
	}
}

func (v *Validator) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, v.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Validating"
	}
	item.ProgressMessage = "Preparing validation"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.ValidationMessage = ""
	logger.Info(
		"starting validation preparation",
		logging.String(logging.FieldShot, item.ShotCode),
		logging.String("source_pattern", strings.TrimSpace(item.SourcePattern)),
	)
	return nil
}

func (v *Validator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, v.logger)
	logger.Info("starting validation", logging.String(logging.FieldShot, item.ShotCode))

	if err := v.resolvePublish(ctx, item); err != nil {
		v.notifyFailure(ctx, item, err)
		return err
	}

	v.updateProgress(ctx, item, "Checking published file type", 25)
	if err := v.checkFileType(item); err != nil {
		v.notifyFailure(ctx, item, err)
		return err
	}

	v.updateProgress(ctx, item, "Checking frame range", 50)
	if item.FirstFrame <= 0 || item.LastFrame < item.FirstFrame {
		err := services.Wrap(
			services.ErrValidation,
			"validating",
			"check frame range",
			fmt.Sprintf("Version for %s has no usable frame range (%d-%d); fix the publish in the tracker", item.ShotCode, item.FirstFrame, item.LastFrame),
			nil,
		)
		v.notifyFailure(ctx, item, err)
		return err
	}

	v.updateProgress(ctx, item, "Checking frames on disk", 75)
	missing, err := frames.Missing(item.SourcePattern, item.FirstFrame, item.LastFrame)
	if err != nil {
		return services.Wrap(services.ErrValidation, "validating", "scan frames", "Published frame pattern is malformed", err)
	}
	if len(missing) > 0 {
		err := services.Wrap(
			services.ErrValidation,
			"validating",
			"check frames on disk",
			fmt.Sprintf("%s is missing %d of %d frames on disk (first missing: %d)", item.ShotCode, len(missing), item.FrameCount(), missing[0]),
			nil,
		)
		v.notifyFailure(ctx, item, err)
		return err
	}

	item.ValidationMessage = fmt.Sprintf("%d frames on disk (%d-%d)", item.FrameCount(), item.FirstFrame, item.LastFrame)
	v.updateProgress(ctx, item, "Validation completed", 100)
	logger.Info(
		"validation completed",
		logging.String(logging.FieldShot, item.ShotCode),
		logging.Int("frame_count", item.FrameCount()),
	)
	return nil
}

// resolvePublish fills in version and publish metadata the scanner could not
// provide at enqueue time.
func (v *Validator) resolvePublish(ctx context.Context, item *queue.Item) error {
	if item.SourcePattern != "" && item.VersionNumber > 0 && item.FirstFrame > 0 {
		return nil
	}

	logger := logging.WithContext(ctx, v.logger)
	v.updateProgress(ctx, item, "Fetching published version", 10)

	version, err := v.tracker.LatestVersion(ctx, item.ShotID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "validating", "query latest version", "Tracker query for latest version failed", err)
	}
	if version == nil {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"query latest version",
			fmt.Sprintf("%s has no published versions; publish a version before delivering", item.ShotCode),
			nil,
		)
	}
	if item.FirstFrame == 0 && item.LastFrame == 0 {
		item.FirstFrame = version.FirstFrame
		item.LastFrame = version.LastFrame
	}

	publish, err := v.tracker.PublishedFileForVersion(ctx, version.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "validating", "query published file", "Tracker query for published file failed", err)
	}
	if publish == nil {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"query published file",
			fmt.Sprintf("Version %s has no published file attached", version.Code),
			nil,
		)
	}

	item.SourcePattern = publish.Path
	if publish.VersionNumber > 0 {
		item.VersionNumber = publish.VersionNumber
	}
	logger.Info(
		"resolved publish from tracker",
		logging.String("version_code", version.Code),
		logging.String("source_pattern", publish.Path),
		logging.Int("version_number", item.VersionNumber),
	)
	return nil
}

func (v *Validator) checkFileType(item *queue.Item) error {
	pattern := strings.TrimSpace(item.SourcePattern)
	if pattern == "" {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"check published path",
			fmt.Sprintf("%s has no published file path", item.ShotCode),
			nil,
		)
	}

	ext := strings.ToLower(filepath.Ext(pattern))
	if _, isMovie := movieExtensions[ext]; isMovie {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"check published file type",
			fmt.Sprintf("%s published a movie file (%s); deliveries need an EXR frame sequence", item.ShotCode, ext),
			nil,
		)
	}
	if ext != ".exr" {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"check published file type",
			fmt.Sprintf("%s published %q; deliveries need an EXR frame sequence", item.ShotCode, ext),
			nil,
		)
	}
	if !frames.HasToken(pattern) {
		return services.Wrap(
			services.ErrValidation,
			"validating",
			"check frame token",
			fmt.Sprintf("Published path for %s has no frame number token: %s", item.ShotCode, pattern),
			nil,
		)
	}
	return nil
}

// HealthCheck verifies the tracker connection settings are present.
func (v *Validator) HealthCheck(ctx context.Context) stage.Health {
	const name = "validator"
	if v.tracker == nil {
		return stage.Unhealthy(name, "tracker client not configured")
	}
	if strings.TrimSpace(v.cfg.Tracker.BaseURL) == "" {
		return stage.Unhealthy(name, "tracker base url missing")
	}
	return stage.Healthy(name)
}

func (v *Validator) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	item.SetProgress("Validating", message, percent)
	if v.store == nil {
		return
	}
	if err := v.store.UpdateProgress(ctx, item); err != nil {
		logging.WithContext(ctx, v.logger).Warn("failed to persist validation progress", logging.Error(err))
	}
}

func (v *Validator) notifyFailure(ctx context.Context, item *queue.Item, err error) {
	if v.notifier == nil || err == nil {
		return
	}
	if services.FailureStatus(err) != queue.StatusReview {
		return
	}
	if notifyErr := v.notifier.NotifyValidationFailed(ctx, item.ShotCode, err.Error()); notifyErr != nil {
		logging.WithContext(ctx, v.logger).Warn("validation notification failed", logging.Error(notifyErr))
	}
}
