package validation_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services"
	"courier/internal/services/shotgrid"
	"courier/internal/testsupport"
	"courier/internal/validation"
)

type stubTracker struct {
	version *shotgrid.Version
	publish *shotgrid.PublishedFile
	err     error
}

func (s *stubTracker) ShotsByStatus(context.Context, string) ([]shotgrid.Shot, error) {
	return nil, nil
}

func (s *stubTracker) LatestVersion(context.Context, int64) (*shotgrid.Version, error) {
	return s.version, s.err
}

func (s *stubTracker) PublishedFileForVersion(context.Context, int64) (*shotgrid.PublishedFile, error) {
	return s.publish, s.err
}

func (s *stubTracker) ProjectCode(context.Context) (string, error) { return "DEMO", nil }

func (s *stubTracker) UpdateShotStatus(context.Context, int64, string) error { return nil }

func newValidator(t *testing.T, tracker shotgrid.API) (*validation.Validator, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := validation.NewValidator(cfg, store, nil, tracker, notifications.NewService(cfg))
	return handler, store
}

func queuedItem(t *testing.T, store *queue.Store, pattern string) *queue.Item {
	t.Helper()

	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.SourcePattern = pattern
	return testsupport.NewShot(t, store, info)
}

func TestValidatorPassesWithCompleteSequence(t *testing.T) {
	handler, store := newValidator(t, &stubTracker{})
	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1010)

	item := queuedItem(t, store, pattern)
	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.ValidationMessage != "10 frames on disk (1001-1010)" {
		t.Fatalf("unexpected validation message: %q", item.ValidationMessage)
	}
}

func TestValidatorRejectsMovieFile(t *testing.T) {
	handler, store := newValidator(t, &stubTracker{})
	item := queuedItem(t, store, filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.mov"))

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatalf("expected review classification, got %s", services.FailureStatus(err))
	}
	if !strings.Contains(err.Error(), "movie") {
		t.Fatalf("expected movie detail in error, got %v", err)
	}
}

func TestValidatorRejectsMissingFrames(t *testing.T) {
	handler, store := newValidator(t, &stubTracker{})
	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1008)

	item := queuedItem(t, store, pattern)
	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing 2 of 10 frames") {
		t.Fatalf("expected missing frame detail, got %v", err)
	}
	if !strings.Contains(err.Error(), "1009") {
		t.Fatalf("expected first missing frame in error, got %v", err)
	}
}

func TestValidatorResolvesPublishFromTracker(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "SEQ010_0010_comp_v005.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1004)

	tracker := &stubTracker{
		version: &shotgrid.Version{ID: 9, Code: "SEQ010_0010_comp_v005", FirstFrame: 1001, LastFrame: 1004},
		publish: &shotgrid.PublishedFile{ID: 4, Path: pattern, VersionNumber: 5},
	}
	handler, store := newValidator(t, tracker)

	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.SourcePattern = ""
	info.VersionNumber = 0
	info.FirstFrame = 0
	info.LastFrame = 0
	item := testsupport.NewShot(t, store, info)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.SourcePattern != pattern {
		t.Fatalf("expected source pattern resolved, got %q", item.SourcePattern)
	}
	if item.VersionNumber != 5 || item.FirstFrame != 1001 || item.LastFrame != 1004 {
		t.Fatalf("unexpected resolved metadata: %#v", item)
	}
}

func TestValidatorReportsNoPublishedVersion(t *testing.T) {
	handler, store := newValidator(t, &stubTracker{})

	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.SourcePattern = ""
	info.VersionNumber = 0
	info.FirstFrame = 0
	info.LastFrame = 0
	item := testsupport.NewShot(t, store, info)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no published versions") {
		t.Fatalf("expected publish detail, got %v", err)
	}
}

func TestValidatorHealthCheck(t *testing.T) {
	handler, _ := newValidator(t, &stubTracker{})
	health := handler.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy validator, got %+v", health)
	}

	cfg := testsupport.NewConfig(t)
	cfg.Tracker.BaseURL = ""
	store := testsupport.MustOpenStore(t, cfg)
	broken := validation.NewValidator(cfg, store, nil, &stubTracker{}, notifications.NewService(cfg))
	if health := broken.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy validator when base url missing")
	}
}
