// Package dag builds and validates the job-instance dependency graph for
// one workflow run.
//
// Matrix jobs are expanded before graph construction, so every graph node is
// one concrete job instance. A `needs` declaration on a job translates into
// edges from every instance of each needed job to every instance of the
// declaring job. Validation (unknown `needs` targets, cycles) happens before
// anything executes; a graph that fails validation never runs.
package dag
