// Package daemon runs the chunk processing worker: it holds the
// single-instance lock, consumes chunk tasks from the broker, and dispatches
// them through the pipeline.
package daemon
