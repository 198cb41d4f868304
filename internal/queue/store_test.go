package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"courier/internal/queue"
	"courier/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewShot(ctx, testsupport.ShotInfo(101, "SEQ010_0010"))
	if err != nil {
		t.Fatalf("NewShot failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.ShotCode != "SEQ010_0010" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.FirstFrame != 1001 || fetched.LastFrame != 1010 {
		t.Fatalf("unexpected frame range: %d-%d", fetched.FirstFrame, fetched.LastFrame)
	}
}

func TestNewShotRejectsDuplicateLiveShot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.NewShot(ctx, testsupport.ShotInfo(101, "SEQ010_0010"))
	if err != nil {
		t.Fatalf("NewShot failed: %v", err)
	}

	if _, err := store.NewShot(ctx, testsupport.ShotInfo(101, "SEQ010_0010")); !errors.Is(err, queue.ErrShotAlreadyQueued) {
		t.Fatalf("expected ErrShotAlreadyQueued, got %v", err)
	}

	// Completing the live item frees the shot for a fresh enqueue.
	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := store.NewShot(ctx, testsupport.ShotInfo(101, "SEQ010_0010")); err != nil {
		t.Fatalf("expected enqueue after completion, got %v", err)
	}
}

func TestNewShotRequiresShotCode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	info := testsupport.ShotInfo(101, "SEQ010_0010")
	info.ShotCode = ""
	if _, err := store.NewShot(context.Background(), info); err == nil {
		t.Fatal("expected error when shot code missing")
	}
}

func TestFindActiveByShotIDIgnoresFinishedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	item.Status = queue.StatusFailed
	item.ErrorMessage = "boom"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	active, err := store.FindActiveByShotID(ctx, 101)
	if err != nil {
		t.Fatalf("FindActiveByShotID failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active item, got %#v", active)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"validating", queue.StatusValidating, queue.StatusPending},
		{"delivering", queue.StatusDelivering, queue.StatusValidated},
		{"finalizing", queue.StatusFinalizing, queue.StatusDelivered},
	}
	var ids []int64
	for i, tc := range cases {
		item, err := store.NewShot(ctx, testsupport.ShotInfo(int64(200+i), fmt.Sprintf("SEQ020_%04d", i*10)))
		if err != nil {
			t.Fatalf("NewShot failed: %v", err)
		}
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	b := testsupport.NewShot(t, store, testsupport.ShotInfo(102, "SEQ010_0020"))
	b.Status = queue.StatusValidated
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c := testsupport.NewShot(t, store, testsupport.ShotInfo(103, "SEQ010_0030"))
	c.Status = queue.StatusFailed
	c.ErrorMessage = "boom"
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusValidated, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 items, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	testsupport.NewShot(t, store, testsupport.ShotInfo(102, "SEQ010_0020"))

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != a.ID {
		t.Fatalf("expected oldest pending item %d, got %#v", a.ID, next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusDelivering)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no delivering item, got %#v", none)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	b := testsupport.NewShot(t, store, testsupport.ShotInfo(102, "SEQ010_0020"))
	for _, item := range []*queue.Item{a, b} {
		item.Status = queue.StatusFailed
		item.ErrorMessage = "boom"
		item.FramesDelivered = 4
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 items retried, got %d", updated)
	}

	item, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected item A pending, got %s", item.Status)
	}
	if item.FramesDelivered != 0 {
		t.Fatalf("expected frame counter reset, got %d", item.FramesDelivered)
	}

	// Mark B failed again and retry targeted selection.
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err = store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 item retried, got %d", updated)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	item.Status = queue.StatusValidating
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	past := time.Now().Add(-2 * time.Hour).UTC()

	stale := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	stale.Status = queue.StatusDelivering
	stale.LastHeartbeat = &past
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update stale: %v", err)
	}

	fresh := testsupport.NewShot(t, store, testsupport.ShotInfo(102, "SEQ010_0020"))
	fresh.Status = queue.StatusDelivering
	now := time.Now().UTC()
	fresh.LastHeartbeat = &now
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update fresh: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item reclaimed, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID stale: %v", err)
	}
	if reclaimed.Status != queue.StatusValidated {
		t.Fatalf("expected rollback to validated, got %s", reclaimed.Status)
	}
	if reclaimed.LastHeartbeat != nil {
		t.Fatalf("expected heartbeat cleared, got %v", reclaimed.LastHeartbeat)
	}

	unchanged, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID fresh: %v", err)
	}
	if unchanged.Status != queue.StatusDelivering {
		t.Fatalf("expected fresh item untouched, got %s", unchanged.Status)
	}
}

func TestUpdateProgressPreservesHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	item.Status = queue.StatusDelivering
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID before progress: %v", err)
	}
	if before.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set before progress update")
	}
	origHeartbeat := *before.LastHeartbeat

	before.SetProgress("Deliver", "Copying frames", 42.5)
	before.FramesDelivered = 4
	if err := store.UpdateProgress(ctx, before); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID after progress: %v", err)
	}
	if after.LastHeartbeat == nil || !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("expected heartbeat unchanged, got %v", after.LastHeartbeat)
	}
	if after.ProgressStage != "Deliver" || after.ProgressMessage != "Copying frames" {
		t.Fatalf("expected progress fields persisted, got stage=%q message=%q", after.ProgressStage, after.ProgressMessage)
	}
	if after.FramesDelivered != 4 {
		t.Fatalf("expected 4 frames delivered, got %d", after.FramesDelivered)
	}
}

func TestHealthCountsReviewSeparately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewShot(t, store, testsupport.ShotInfo(101, "SEQ010_0010"))
	a.SetReview("frame range missing upstream")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewShot(t, store, testsupport.ShotInfo(102, "SEQ010_0020"))

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Review != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}
