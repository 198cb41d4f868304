package testsupport

import (
	"context"
	"testing"

	"courier/internal/config"
	"courier/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewShot creates a new shot item for tests using the provided store.
func NewShot(t testing.TB, store *queue.Store, info queue.ShotInfo) *queue.Item {
	t.Helper()

	item, err := store.NewShot(context.Background(), info)
	if err != nil {
		t.Fatalf("store.NewShot: %v", err)
	}
	return item
}

// ShotInfo returns a ShotInfo with plausible defaults for the given shot.
func ShotInfo(shotID int64, code string) queue.ShotInfo {
	return queue.ShotInfo{
		ShotID:        shotID,
		ShotCode:      code,
		SequenceName:  "SEQ010",
		ProjectCode:   "DEMO",
		VersionNumber: 3,
		FirstFrame:    1001,
		LastFrame:     1010,
	}
}
