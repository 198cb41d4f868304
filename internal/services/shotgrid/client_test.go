package shotgrid_test

import (
	"context"
	"testing"

	"courier/internal/services/shotgrid"
	"courier/internal/testsupport"
)

func newClient(t *testing.T, tracker *testsupport.FakeTracker) *shotgrid.Client {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithTrackerBaseURL(tracker.URL()))
	client, err := shotgrid.New(cfg)
	if err != nil {
		t.Fatalf("shotgrid.New: %v", err)
	}
	return client
}

func TestShotsByStatusFiltersOnStatus(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)
	tracker.AddShot(testsupport.TrackerShot{ID: 101, Code: "SEQ010_0010", Status: "rfd", SequenceName: "SEQ010"})
	tracker.AddShot(testsupport.TrackerShot{ID: 102, Code: "SEQ010_0020", Status: "ip", SequenceName: "SEQ010"})

	client := newClient(t, tracker)
	shots, err := client.ShotsByStatus(context.Background(), "rfd")
	if err != nil {
		t.Fatalf("ShotsByStatus: %v", err)
	}
	if len(shots) != 1 {
		t.Fatalf("expected 1 shot, got %d", len(shots))
	}
	if shots[0].ID != 101 || shots[0].Code != "SEQ010_0010" || shots[0].SequenceName != "SEQ010" {
		t.Fatalf("unexpected shot: %#v", shots[0])
	}
}

func TestLatestVersionReturnsNewest(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)
	tracker.AddVersion(testsupport.TrackerVersion{ID: 1, ShotID: 101, Code: "SEQ010_0010_comp_v002", FirstFrame: 1001, LastFrame: 1048})
	tracker.AddVersion(testsupport.TrackerVersion{ID: 2, ShotID: 101, Code: "SEQ010_0010_comp_v003", FirstFrame: 1001, LastFrame: 1050})

	client := newClient(t, tracker)
	version, err := client.LatestVersion(context.Background(), 101)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if version == nil || version.ID != 2 {
		t.Fatalf("expected newest version, got %#v", version)
	}
	if version.FirstFrame != 1001 || version.LastFrame != 1050 {
		t.Fatalf("unexpected frame range: %d-%d", version.FirstFrame, version.LastFrame)
	}
}

func TestLatestVersionReturnsNilWhenNonePublished(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)

	client := newClient(t, tracker)
	version, err := client.LatestVersion(context.Background(), 101)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if version != nil {
		t.Fatalf("expected nil version, got %#v", version)
	}
}

func TestPublishedFileForVersion(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)
	tracker.AddPublishedFile(testsupport.TrackerPublishedFile{
		ID:            7,
		VersionID:     2,
		Name:          "SEQ010_0010_comp_v003",
		LocalPath:     "/projects/demo/SEQ010_0010/comp/v003/SEQ010_0010_comp_v003.%04d.exr",
		VersionNumber: 3,
		FileType:      "Rendered Image",
	})

	client := newClient(t, tracker)
	file, err := client.PublishedFileForVersion(context.Background(), 2)
	if err != nil {
		t.Fatalf("PublishedFileForVersion: %v", err)
	}
	if file == nil || file.ID != 7 {
		t.Fatalf("expected published file, got %#v", file)
	}
	if file.VersionNumber != 3 || file.FileType != "Rendered Image" {
		t.Fatalf("unexpected published file: %#v", file)
	}
	if file.Path != "/projects/demo/SEQ010_0010/comp/v003/SEQ010_0010_comp_v003.%04d.exr" {
		t.Fatalf("unexpected path: %q", file.Path)
	}
}

func TestProjectCodeReadsConfiguredField(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)
	tracker.SetProjectCode("ABC")

	client := newClient(t, tracker)
	code, err := client.ProjectCode(context.Background())
	if err != nil {
		t.Fatalf("ProjectCode: %v", err)
	}
	if code != "ABC" {
		t.Fatalf("expected project code ABC, got %q", code)
	}
}

func TestUpdateShotStatus(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)

	client := newClient(t, tracker)
	if err := client.UpdateShotStatus(context.Background(), 101, "fin"); err != nil {
		t.Fatalf("UpdateShotStatus: %v", err)
	}
	status, ok := tracker.StatusUpdate(101)
	if !ok || status != "fin" {
		t.Fatalf("expected status update to fin, got %q (%v)", status, ok)
	}
}

func TestClientReusesCachedToken(t *testing.T) {
	tracker := testsupport.NewFakeTracker(t)

	client := newClient(t, tracker)
	ctx := context.Background()
	if _, err := client.ShotsByStatus(ctx, "rfd"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := client.ShotsByStatus(ctx, "rfd"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if got := tracker.TokenRequests(); got != 1 {
		t.Fatalf("expected 1 token request, got %d", got)
	}
}
