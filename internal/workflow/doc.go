// Package workflow advances queue items through the delivery pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into the registered stage handlers (validator, deliverer, finalizer)
// while capturing progress and failure metadata. Deliveries run one shot at a
// time; validation failures park items in review while transient failures mark
// them failed for retry.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
