package main

import (
	"testing"

	"courier/internal/testsupport"
)

func TestStatusCommandAgainstRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewShot(t, env.store, testsupport.ShotInfo(2001, "SEQ010_0010"))

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Queue Status")
	requireContains(t, out, "Pending")
}

func TestStatusCommandReportsStoppedDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
}

func TestStopCommandWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.socketPath+".missing", env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
