package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courier/internal/config"
	"courier/internal/delivery"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services"
	"courier/internal/testsupport"
)

func newDeliverer(t *testing.T, cfg *config.Config) (*delivery.Deliverer, *queue.Store) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	handler, err := delivery.NewDeliverer(cfg, store, nil, notifications.NewService(cfg))
	if err != nil {
		t.Fatalf("NewDeliverer: %v", err)
	}
	return handler, store
}

func validatedItem(t *testing.T, store *queue.Store, pattern string) *queue.Item {
	t.Helper()

	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.SourcePattern = pattern
	item := testsupport.NewShot(t, store, info)
	item.Status = queue.StatusValidated
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return item
}

func deliveredFramePath(cfg *config.Config, frame int) string {
	return filepath.Join(
		cfg.DefaultRootPath(),
		"DEMO", "SEQ010", "SEQ010_0010", "v003",
		fmt.Sprintf("DEMO_SEQ010_0010_comp_v003.%04d.exr", frame),
	)
}

func TestDelivererLandsAllFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1010)
	item := validatedItem(t, store, pattern)

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.FramesDelivered != 10 {
		t.Fatalf("expected 10 frames delivered, got %d", item.FramesDelivered)
	}
	expectedDir := filepath.Join(cfg.DefaultRootPath(), "DEMO", "SEQ010", "SEQ010_0010", "v003")
	if item.DeliveryPath != expectedDir {
		t.Fatalf("unexpected delivery path: %q", item.DeliveryPath)
	}
	for frame := 1001; frame <= 1010; frame++ {
		if _, err := os.Stat(deliveredFramePath(cfg, frame)); err != nil {
			t.Fatalf("expected frame %d delivered: %v", frame, err)
		}
	}
}

func TestDelivererHardLinksFrames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler, store := newDeliverer(t, cfg)

	// Source sits under the delivery root so hard links stay on one filesystem.
	pattern := filepath.Join(cfg.DefaultRootPath(), "src", "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1002)
	item := validatedItem(t, store, pattern)
	item.FirstFrame = 1001
	item.LastFrame = 1002

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	srcInfo, err := os.Stat(fmt.Sprintf(pattern, 1001))
	if err != nil {
		t.Fatalf("stat source: %v", err)
	}
	dstInfo, err := os.Stat(deliveredFramePath(cfg, 1001))
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatal("expected destination to be a hard link of the source")
	}
}

func TestDelivererFailsOnExistingFramesWithoutOverwrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Delivery.Overwrite = false
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1002)
	item := validatedItem(t, store, pattern)
	item.FirstFrame = 1001
	item.LastFrame = 1002

	existing := deliveredFramePath(cfg, 1001)
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(existing, []byte("already delivered"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for existing destination frame")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
	if services.FailureStatus(err) != queue.StatusReview {
		t.Fatalf("expected review classification, got %s", services.FailureStatus(err))
	}
	if !strings.Contains(err.Error(), "exported before") {
		t.Fatalf("expected exported-before message, got %v", err)
	}

	kept, readErr := os.ReadFile(existing)
	if readErr != nil {
		t.Fatalf("read existing: %v", readErr)
	}
	if string(kept) != "already delivered" {
		t.Fatal("expected existing frame to be kept")
	}
}

func TestDelivererResumesPartialDelivery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Delivery.Overwrite = false
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1003)
	item := validatedItem(t, store, pattern)
	item.FirstFrame = 1001
	item.LastFrame = 1003

	// One frame landed before the previous run was interrupted.
	existing := deliveredFramePath(cfg, 1001)
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(existing, []byte("from first attempt"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}
	item.FramesDelivered = 1

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.FramesDelivered != 3 {
		t.Fatalf("expected 3 frames delivered, got %d", item.FramesDelivered)
	}
	kept, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read resumed frame: %v", err)
	}
	if string(kept) != "from first attempt" {
		t.Fatal("expected resumed frame to be left in place")
	}
	for frame := 1002; frame <= 1003; frame++ {
		if _, err := os.Stat(deliveredFramePath(cfg, frame)); err != nil {
			t.Fatalf("expected frame %d delivered: %v", frame, err)
		}
	}
}

func TestDelivererOverwritesWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Delivery.Mode = "copy"
	cfg.Delivery.Overwrite = true
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1001)
	item := validatedItem(t, store, pattern)
	item.FirstFrame = 1001
	item.LastFrame = 1001

	existing := deliveredFramePath(cfg, 1001)
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(existing, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	replaced, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read replaced: %v", err)
	}
	if string(replaced) == "stale" {
		t.Fatal("expected existing frame to be replaced with overwrite enabled")
	}
}

func TestDelivererCopyModeWithChecksums(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDeliveryMode("copy"))
	cfg.Delivery.VerifyChecksums = true
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	testsupport.WriteFrames(t, pattern, 1001, 1003)
	item := validatedItem(t, store, pattern)
	item.FirstFrame = 1001
	item.LastFrame = 1003

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for frame := 1001; frame <= 1003; frame++ {
		if _, err := os.Stat(deliveredFramePath(cfg, frame)); err != nil {
			t.Fatalf("expected frame %d delivered: %v", frame, err)
		}
	}
}

func TestDelivererFailsWithoutProjectCode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler, store := newDeliverer(t, cfg)

	pattern := filepath.Join(t.TempDir(), "SEQ010_0010_comp_v003.%04d.exr")
	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.SourcePattern = pattern
	info.ProjectCode = ""
	item := testsupport.NewShot(t, store, info)

	if err := handler.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error when project code missing")
	}
}

func TestDelivererHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler, _ := newDeliverer(t, cfg)
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy deliverer, got %+v", health)
	}
}
