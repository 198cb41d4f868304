// Package ipc provides the control channel between the courier CLI and
// the daemon: JSON-RPC over a Unix domain socket in the log directory.
// The server wraps the daemon control surface; the client is consumed
// by the CLI commands.
package ipc
