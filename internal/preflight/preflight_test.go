package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"courier/internal/logging"
	"courier/internal/services/shotgrid"
	"courier/internal/testsupport"
)

func newRunner(t *testing.T) (*Runner, *testsupport.FakeTracker) {
	t.Helper()
	tracker := testsupport.NewFakeTracker(t)
	cfg := testsupport.NewConfig(t, testsupport.WithTrackerBaseURL(tracker.URL()))
	client, err := shotgrid.New(cfg)
	if err != nil {
		t.Fatalf("shotgrid.New: %v", err)
	}
	return NewRunner(cfg, logging.NewNop(), client), tracker
}

func checkByName(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, check := range checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("no check named %q in %v", name, checks)
	return Check{}
}

func TestRunReportsAllChecks(t *testing.T) {
	runner, _ := newRunner(t)
	checks := runner.Run(context.Background())

	if len(checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(checks))
	}
	for _, name := range []string{"tracker", "delivery_root", "free_space", "templates"} {
		checkByName(t, checks, name)
	}
}

func TestTrackerCheckSucceedsAgainstFakeTracker(t *testing.T) {
	runner, _ := newRunner(t)
	checks := runner.Run(context.Background())

	tracker := checkByName(t, checks, "tracker")
	if !tracker.OK {
		t.Fatalf("tracker check failed: %s", tracker.Detail)
	}
}

func TestTrackerCheckFailsWithoutClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := NewRunner(cfg, logging.NewNop(), nil)

	checks := runner.Run(context.Background())
	tracker := checkByName(t, checks, "tracker")
	if tracker.OK {
		t.Fatal("expected tracker check to fail without a client")
	}
}

func TestDeliveryRootCheckFailsOnMissingDirectory(t *testing.T) {
	runner, _ := newRunner(t)
	missing := filepath.Join(testsupport.BaseDir(runner.cfg), "gone")
	runner.cfg.Roots[runner.cfg.Templates.DefaultRoot] = missing

	checks := runner.Run(context.Background())
	root := checkByName(t, checks, "delivery_root")
	if root.OK {
		t.Fatal("expected delivery root check to fail on missing directory")
	}
}

func TestDeliveryRootCheckPassesOnWritableDirectory(t *testing.T) {
	runner, _ := newRunner(t)
	checks := runner.Run(context.Background())

	root := checkByName(t, checks, "delivery_root")
	if !root.OK {
		t.Fatalf("delivery root check failed: %s", root.Detail)
	}
	if info, err := os.Stat(root.Detail); err != nil || !info.IsDir() {
		t.Fatalf("expected detail to name the root directory, got %q", root.Detail)
	}
}

func TestTemplatesCheckFailsOnBrokenTemplate(t *testing.T) {
	runner, _ := newRunner(t)
	runner.cfg.Templates.DeliverySequence = "{ProjectCode}_{Shot}.exr" // no frame token

	checks := runner.Run(context.Background())
	templates := checkByName(t, checks, "templates")
	if templates.OK {
		t.Fatal("expected templates check to fail without a frame token")
	}
}

func TestPassed(t *testing.T) {
	all := []Check{{Name: "a", OK: true}, {Name: "b", OK: true}}
	if !Passed(all) {
		t.Fatal("expected Passed to be true when every check succeeds")
	}
	one := []Check{{Name: "a", OK: true}, {Name: "b", OK: false}}
	if Passed(one) {
		t.Fatal("expected Passed to be false when any check fails")
	}
}
