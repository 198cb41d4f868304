// Package daemon coordinates the background services: the tracker
// scanner, the workflow manager, and queue maintenance. It enforces
// single-instance execution with a file lock and exposes the control
// surface the IPC server serves to the CLI.
package daemon
