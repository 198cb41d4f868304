package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services/shotgrid"
)

// Scanner discovers deliverable shots on the tracker and adds them to the queue.
type Scanner struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	tracker  shotgrid.API
	notifier notifications.Service

	mu          sync.Mutex
	projectCode string
}

// NewScanner constructs a scanner using the given tracker client.
func NewScanner(cfg *config.Config, store *queue.Store, logger *slog.Logger, tracker shotgrid.API, notifier notifications.Service) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Scanner{
		cfg:      cfg,
		store:    store,
		logger:   logger.With(logging.String(logging.FieldComponent, "scanner")),
		tracker:  tracker,
		notifier: notifier,
	}
}

// Run polls the tracker until ctx is cancelled. Poll failures are logged
// and retried on the next interval rather than stopping the loop.
func (s *Scanner) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Workflow.TrackerPollInterval) * time.Second
	if interval <= 0 {
		s.logger.Info("tracker polling disabled")
		return
	}

	s.logger.Info("tracker polling started", logging.Duration("interval", interval))
	for {
		if _, err := s.ScanOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("tracker scan failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "tracker_scan_failed"),
				logging.String(logging.FieldErrorHint, "check tracker connectivity and credentials"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// ScanOnce queries the tracker for shots in the delivery status and
// enqueues any that are not already queued. It returns the number of
// newly queued shots.
func (s *Scanner) ScanOnce(ctx context.Context) (int, error) {
	projectCode, err := s.resolveProjectCode(ctx)
	if err != nil {
		return 0, err
	}

	shots, err := s.tracker.ShotsByStatus(ctx, s.cfg.Tracker.DeliveryStatus)
	if err != nil {
		return 0, fmt.Errorf("list shots by status %q: %w", s.cfg.Tracker.DeliveryStatus, err)
	}

	queued := 0
	for _, shot := range shots {
		added, err := s.enqueueShot(ctx, projectCode, shot)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return queued, err
			}
			s.logger.Warn("failed to enqueue shot",
				logging.String(logging.FieldShot, shot.Code),
				logging.Error(err),
			)
			continue
		}
		if added {
			queued++
		}
	}
	if queued > 0 {
		s.logger.Info("shots queued for delivery",
			logging.Int("queued", queued),
			logging.Int("candidates", len(shots)),
			logging.String(logging.FieldEventType, "shots_queued"),
		)
	}
	return queued, nil
}

func (s *Scanner) enqueueShot(ctx context.Context, projectCode string, shot shotgrid.Shot) (bool, error) {
	info := queue.ShotInfo{
		ShotID:       shot.ID,
		ShotCode:     shot.Code,
		SequenceName: shot.SequenceName,
		ProjectCode:  projectCode,
	}

	// The latest publish fills in frame range and version up front so the
	// queue listing is informative before validation runs. A shot with no
	// publish is still queued; validation parks it for review.
	version, err := s.tracker.LatestVersion(ctx, shot.ID)
	if err != nil {
		return false, fmt.Errorf("latest version for shot %s: %w", shot.Code, err)
	}
	if version != nil {
		info.FirstFrame = version.FirstFrame
		info.LastFrame = version.LastFrame
		publish, err := s.tracker.PublishedFileForVersion(ctx, version.ID)
		if err != nil {
			return false, fmt.Errorf("published file for shot %s: %w", shot.Code, err)
		}
		if publish != nil {
			info.VersionNumber = publish.VersionNumber
			info.SourcePattern = publish.Path
		}
	}

	item, err := s.store.NewShot(ctx, info)
	if err != nil {
		if errors.Is(err, queue.ErrShotAlreadyQueued) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("shot queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldShot, item.ShotCode),
		logging.String(logging.FieldSequence, item.SequenceName),
		logging.Int("version", item.VersionNumber),
	)
	if err := s.notifier.NotifyShotQueued(ctx, item.ShotCode, item.VersionNumber); err != nil {
		s.logger.Debug("queue notification failed", logging.Error(err))
	}
	return true, nil
}

func (s *Scanner) resolveProjectCode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectCode != "" {
		return s.projectCode, nil
	}
	code, err := s.tracker.ProjectCode(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve project code: %w", err)
	}
	s.projectCode = code
	return code, nil
}
