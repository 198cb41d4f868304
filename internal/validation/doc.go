// Package validation checks that a queued shot has a deliverable frame
// sequence before any files are copied: a published EXR sequence, a known
// frame range, and every frame present on disk.
package validation
