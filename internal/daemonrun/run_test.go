package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/services/shotgrid"
	"courier/internal/testsupport"
	"courier/internal/workflow"
)

func TestRegisterStagesConfiguresPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	tracker, err := shotgrid.New(cfg)
	if err != nil {
		t.Fatalf("shotgrid.New: %v", err)
	}

	mgr := workflow.NewManager(cfg, store, logger)
	if err := registerStages(mgr, cfg, store, logger, tracker, notifications.NewService(cfg)); err != nil {
		t.Fatalf("registerStages: %v", err)
	}

	status := mgr.Status(context.Background())
	if len(status.StageHealth) != 3 {
		t.Fatalf("expected 3 configured stages, got %d", len(status.StageHealth))
	}
}

func TestSocketPathUsesLogDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	want := filepath.Join(cfg.Paths.LogDir, "courier.sock")
	if got := SocketPath(cfg); got != want {
		t.Fatalf("SocketPath = %q, want %q", got, want)
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "courier-run.log")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if err := ensureCurrentLogPointer(dir, target); err != nil {
		t.Fatalf("ensureCurrentLogPointer: %v", err)
	}
	resolved, err := os.Readlink(filepath.Join(dir, "courier.log"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if resolved != target {
		t.Fatalf("pointer resolves to %q, want %q", resolved, target)
	}

	// Repointing at a newer run replaces the link.
	next := filepath.Join(dir, "courier-next.log")
	if err := os.WriteFile(next, []byte("y"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, next); err != nil {
		t.Fatalf("repoint: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courier.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	pid, err := strconv.Atoi(string(data[:len(data)-1]))
	if err != nil {
		t.Fatalf("parse pid %q: %v", data, err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid %d, want %d", pid, os.Getpid())
	}
}
