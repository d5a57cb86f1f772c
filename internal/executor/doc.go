// Package executor schedules and runs the job-instance graph of one
// workflow run.
//
// Scheduling is a worker pool over a buffered ready channel: root nodes are
// enqueued up front, every completed node decrements its dependents'
// remaining-dependency counters, and a node whose counter reaches zero is
// enqueued. The pool size is the configured concurrency ceiling; nothing
// else bounds parallelism, and ordering among mutually-ready nodes is
// deliberately unspecified.
//
// Failure policy: a hard-failed node skips its dependent closure without
// touching sibling subtrees; a soft-failed node releases its dependents as
// if it had succeeded. External cancellation signals running steps through
// their context and marks everything not yet started as skipped.
package executor
