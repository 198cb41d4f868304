// Package delivery copies validated frame sequences into the client delivery
// tree, renaming each frame according to the configured path templates.
// Transfers prefer hard links and fall back to copies across filesystems, and
// the per-frame counter persisted in the queue lets an interrupted delivery
// resume where it stopped.
package delivery
