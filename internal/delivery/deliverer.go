package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"courier/internal/config"
	"courier/internal/fileutil"
	"courier/internal/frames"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services"
	"courier/internal/stage"
	"courier/internal/template"
)

// progressPersistStride controls how many frames land between queue writes.
const progressPersistStride = 10

// Deliverer copies validated frames into the delivery tree.
type Deliverer struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	templates template.Set
	notifier  notifications.Service
}

// NewDeliverer constructs the delivery stage handler. It resolves the path
// templates once so template problems surface at startup.
func NewDeliverer(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) (*Deliverer, error) {
	set, err := template.LoadSet(cfg)
	if err != nil {
		return nil, fmt.Errorf("load delivery templates: %w", err)
	}
	return &Deliverer{
		store:     store,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "deliverer"),
		templates: set,
		notifier:  notifier,
	}, nil
}

func (d *Deliverer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Delivering"
	}
	item.ProgressMessage = "Preparing delivery"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting delivery preparation",
		logging.String(logging.FieldShot, item.ShotCode),
		logging.Int("frames_delivered", item.FramesDelivered),
	)
	return nil
}

func (d *Deliverer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, d.logger)

	fields, err := d.templateFields(item)
	if err != nil {
		return err
	}

	folderRel, err := d.templates.DeliveryFolder.Apply(fields)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "delivering", "resolve folder template", "Delivery folder template could not be resolved", err)
	}
	destPattern, err := d.templates.DeliverySequence.Apply(fields)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "delivering", "resolve sequence template", "Delivery sequence template could not be resolved", err)
	}

	root := d.cfg.DefaultRootPath()
	if root == "" {
		return services.Wrap(services.ErrConfiguration, "delivering", "resolve delivery root", "No delivery root configured for the default root name", nil)
	}
	destDir := filepath.Join(root, folderRel)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "delivering", "create delivery folder", "Failed to create delivery folder", err)
	}
	item.DeliveryPath = destDir

	total := item.FrameCount()
	logger.Info(
		"starting delivery",
		logging.String("delivery_path", destDir),
		logging.Int("frame_count", total),
		logging.String("mode", d.cfg.Delivery.Mode),
	)
	if d.notifier != nil && item.FramesDelivered == 0 {
		if err := d.notifier.NotifyDeliveryStarted(ctx, item.ShotCode, total); err != nil {
			logger.Warn("delivery start notification failed", logging.Error(err))
		}
	}

	// Frames a prior interrupted run already landed may exist at the
	// destination; anything past the persisted counter is a collision.
	resumeBefore := item.FirstFrame + item.FramesDelivered

	delivered := 0
	for frame := item.FirstFrame; frame <= item.LastFrame; frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		src, err := frames.Format(item.SourcePattern, frame)
		if err != nil {
			return services.Wrap(services.ErrValidation, "delivering", "format source frame", "Source frame pattern is malformed", err)
		}
		dst, err := frames.Format(filepath.Join(destDir, destPattern), frame)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "delivering", "format destination frame", "Delivery sequence template produced a malformed pattern", err)
		}

		if err := d.transferFrame(src, dst, frame < resumeBefore); err != nil {
			if errors.Is(err, errFrameExists) {
				return services.Wrap(
					services.ErrValidation,
					"delivering",
					"transfer frame",
					"Files already exist. Has this shot been exported before?",
					err,
				)
			}
			return services.Wrap(
				services.ErrTransient,
				"delivering",
				"transfer frame",
				fmt.Sprintf("Failed to deliver frame %d of %s", frame, item.ShotCode),
				err,
			)
		}

		delivered++
		item.FramesDelivered = delivered
		if delivered%progressPersistStride == 0 || delivered == total {
			percent := float64(delivered) / float64(total) * 100
			d.updateProgress(ctx, item, fmt.Sprintf("Delivered %d/%d frames", delivered, total), percent)
		}
	}

	item.ProgressMessage = fmt.Sprintf("Delivered %d frames to %s", total, destDir)
	item.ProgressPercent = 100
	logger.Info(
		"delivery completed",
		logging.String("delivery_path", destDir),
		logging.Int("frame_count", total),
	)
	return nil
}

// errFrameExists marks a destination collision for error classification.
var errFrameExists = errors.New("destination frame already exists")

// transferFrame lands a single frame at dst. resumed frames are ones a prior
// run already delivered; any other existing destination is a collision and
// fails unless overwrite is configured.
func (d *Deliverer) transferFrame(src, dst string, resumed bool) error {
	transfer := func() error {
		if d.cfg.Delivery.Mode == "copy" {
			if d.cfg.Delivery.VerifyChecksums {
				return fileutil.CopyFileVerified(src, dst)
			}
			return fileutil.CopyFile(src, dst)
		}
		return fileutil.LinkOrCopy(src, dst)
	}

	if _, err := os.Stat(dst); err == nil {
		switch {
		case resumed:
			return nil
		case d.cfg.Delivery.Overwrite:
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("remove existing frame: %w", err)
			}
		default:
			return errFrameExists
		}
	}

	err := transfer()
	if errors.Is(err, os.ErrExist) {
		if resumed {
			return nil
		}
		if !d.cfg.Delivery.Overwrite {
			return errFrameExists
		}
		if removeErr := os.Remove(dst); removeErr != nil {
			return fmt.Errorf("remove existing frame: %w", removeErr)
		}
		return transfer()
	}
	return err
}

func (d *Deliverer) templateFields(item *queue.Item) (map[string]string, error) {
	if strings.TrimSpace(item.ProjectCode) == "" {
		return nil, services.Wrap(
			services.ErrValidation,
			"delivering",
			"resolve template fields",
			fmt.Sprintf("%s has no project code; check the project code field in the tracker", item.ShotCode),
			nil,
		)
	}
	if item.VersionNumber <= 0 {
		return nil, services.Wrap(
			services.ErrValidation,
			"delivering",
			"resolve template fields",
			fmt.Sprintf("%s has no version number; re-run validation", item.ShotCode),
			nil,
		)
	}
	return map[string]string{
		"ProjectCode": item.ProjectCode,
		"Sequence":    item.SequenceName,
		"Shot":        item.ShotCode,
		"Version":     template.FormatVersion(item.VersionNumber),
	}, nil
}

// HealthCheck verifies the delivery root exists and is writable.
func (d *Deliverer) HealthCheck(ctx context.Context) stage.Health {
	const name = "deliverer"
	root := d.cfg.DefaultRootPath()
	if root == "" {
		return stage.Unhealthy(name, "no delivery root configured")
	}
	info, err := os.Stat(root)
	if err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("delivery root unavailable: %v", err))
	}
	if !info.IsDir() {
		return stage.Unhealthy(name, "delivery root is not a directory")
	}
	return stage.Healthy(name)
}

func (d *Deliverer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	item.SetProgress("Delivering", message, percent)
	if d.store == nil {
		return
	}
	if err := d.store.UpdateProgress(ctx, item); err != nil {
		logging.WithContext(ctx, d.logger).Warn("failed to persist delivery progress", logging.Error(err))
	}
}
