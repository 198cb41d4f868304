// Package scanner polls the production tracker for shots flagged ready
// for delivery and enqueues them for processing. It only creates queue
// items; validation and delivery happen downstream in the workflow.
package scanner
