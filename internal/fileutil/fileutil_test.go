package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"courier/internal/fileutil"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.exr")
	dst := filepath.Join(dir, "dst.exr")

	payload := []byte("frame data")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified failed: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("destination content mismatch: %q", got)
	}
}

func TestLinkOrCopyCreatesHardLink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.exr")
	dst := filepath.Join(dir, "dst.exr")

	if err := os.WriteFile(src, []byte("frame"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := fileutil.LinkOrCopy(src, dst); err != nil {
		t.Fatalf("LinkOrCopy failed: %v", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatalf("stat source: %v", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !os.SameFile(srcInfo, dstInfo) {
		t.Fatal("expected destination to be a hard link of source")
	}
}

func TestLinkOrCopyRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.exr")
	dst := filepath.Join(dir, "dst.exr")

	if err := os.WriteFile(src, []byte("frame"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := os.WriteFile(dst, []byte("already delivered"), 0o644); err != nil {
		t.Fatalf("write destination: %v", err)
	}

	err := fileutil.LinkOrCopy(src, dst)
	if err == nil {
		t.Fatal("expected error for existing destination")
	}
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
}
