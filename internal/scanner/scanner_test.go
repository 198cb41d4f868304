package scanner

import (
	"context"
	"testing"

	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/services/shotgrid"
	"courier/internal/testsupport"
)

func newScanner(t *testing.T) (*Scanner, *queue.Store, *testsupport.FakeTracker) {
	t.Helper()
	tracker := testsupport.NewFakeTracker(t)
	cfg := testsupport.NewConfig(t, testsupport.WithTrackerBaseURL(tracker.URL()))
	store := testsupport.MustOpenStore(t, cfg)

	client, err := shotgrid.New(cfg)
	if err != nil {
		t.Fatalf("shotgrid.New: %v", err)
	}
	return NewScanner(cfg, store, logging.NewNop(), client, notifications.NewService(cfg)), store, tracker
}

func TestScanOnceQueuesReadyShots(t *testing.T) {
	scanner, store, tracker := newScanner(t)
	tracker.AddShot(testsupport.TrackerShot{ID: 501, Code: "SEQ010_0010", Status: "rfd", SequenceName: "SEQ010"})
	tracker.AddShot(testsupport.TrackerShot{ID: 502, Code: "SEQ010_0020", Status: "ip", SequenceName: "SEQ010"})
	tracker.AddVersion(testsupport.TrackerVersion{ID: 9001, ShotID: 501, Code: "SEQ010_0010_comp_v003", FirstFrame: 1001, LastFrame: 1010})
	tracker.AddPublishedFile(testsupport.TrackerPublishedFile{
		ID: 7001, VersionID: 9001, Name: "SEQ010_0010_comp_v003",
		LocalPath: "/pub/SEQ010_0010_comp_v003.%04d.exr", VersionNumber: 3,
	})

	queued, err := scanner.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected 1 queued shot, got %d", queued)
	}

	item, err := store.FindActiveByShotID(context.Background(), 501)
	if err != nil {
		t.Fatalf("FindActiveByShotID: %v", err)
	}
	if item == nil {
		t.Fatal("expected shot 501 to be queued")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.ProjectCode != "DEMO" {
		t.Fatalf("expected project code DEMO, got %q", item.ProjectCode)
	}
	if item.VersionNumber != 3 || item.FirstFrame != 1001 || item.LastFrame != 1010 {
		t.Fatalf("unexpected publish fields: v%d %d-%d", item.VersionNumber, item.FirstFrame, item.LastFrame)
	}
	if item.SourcePattern != "/pub/SEQ010_0010_comp_v003.%04d.exr" {
		t.Fatalf("unexpected source pattern %q", item.SourcePattern)
	}
}

func TestScanOnceSkipsAlreadyQueuedShots(t *testing.T) {
	scanner, store, tracker := newScanner(t)
	tracker.AddShot(testsupport.TrackerShot{ID: 501, Code: "SEQ010_0010", Status: "rfd", SequenceName: "SEQ010"})

	if _, err := scanner.ScanOnce(context.Background()); err != nil {
		t.Fatalf("first ScanOnce: %v", err)
	}
	queued, err := scanner.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("second ScanOnce: %v", err)
	}
	if queued != 0 {
		t.Fatalf("expected no new items on rescan, got %d", queued)
	}

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected a single queue item, got %d", len(items))
	}
}

func TestScanOnceRequeuesAfterCompletion(t *testing.T) {
	scanner, store, tracker := newScanner(t)
	tracker.AddShot(testsupport.TrackerShot{ID: 501, Code: "SEQ010_0010", Status: "rfd", SequenceName: "SEQ010"})

	if _, err := scanner.ScanOnce(context.Background()); err != nil {
		t.Fatalf("first ScanOnce: %v", err)
	}
	item, err := store.FindActiveByShotID(context.Background(), 501)
	if err != nil || item == nil {
		t.Fatalf("expected queued item, err %v", err)
	}
	item.Status = queue.StatusCompleted
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	queued, err := scanner.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("second ScanOnce: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected redelivery to queue a fresh item, got %d", queued)
	}
}

func TestScanOnceQueuesShotsWithoutPublishes(t *testing.T) {
	scanner, store, tracker := newScanner(t)
	tracker.AddShot(testsupport.TrackerShot{ID: 503, Code: "SEQ010_0030", Status: "rfd", SequenceName: "SEQ010"})

	queued, err := scanner.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected shot without publish to still queue, got %d", queued)
	}

	item, err := store.FindActiveByShotID(context.Background(), 503)
	if err != nil || item == nil {
		t.Fatalf("expected queued item, err %v", err)
	}
	if item.VersionNumber != 0 || item.SourcePattern != "" {
		t.Fatalf("expected empty publish fields, got v%d %q", item.VersionNumber, item.SourcePattern)
	}
}

func TestScanOnceCachesProjectCode(t *testing.T) {
	scanner, _, tracker := newScanner(t)

	if _, err := scanner.ScanOnce(context.Background()); err != nil {
		t.Fatalf("first ScanOnce: %v", err)
	}
	tracker.SetProjectCode("OTHER")
	if _, err := scanner.ScanOnce(context.Background()); err != nil {
		t.Fatalf("second ScanOnce: %v", err)
	}

	if code := scanner.projectCode; code != "DEMO" {
		t.Fatalf("expected cached project code DEMO, got %q", code)
	}
}
