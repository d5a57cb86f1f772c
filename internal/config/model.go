package config

import "time"

// Model is the unified, format-agnostic representation of everything loaded
// from a workflow definition document.
type Model struct {
	Workflow *Workflow
}

// Workflow is the top-level definition: trigger filter plus an ordered list
// of job templates.
type Workflow struct {
	Name string
	// On lists the event types that admit a run (e.g. "pull_request").
	On []string
	// Env is injected into every job of the workflow.
	Env map[string]string
	// Jobs preserves declaration order.
	Jobs []*Job
}

// Job is a named job template. A job with a Matrix fans out into one
// instance per surviving matrix assignment; a job without one is a
// singleton.
type Job struct {
	Name string
	// Needs names other jobs that must reach a terminal state before any
	// instance of this job starts.
	Needs []string
	// Matrix is nil for singleton jobs.
	Matrix *Matrix
	// Timeout is the wall-clock budget for one instance. Zero means no
	// budget. Exceeding it counts as a step failure.
	Timeout time.Duration
	Env     map[string]string
	Steps   []*Step
}

// Matrix declares the axes of a test matrix together with the partial
// assignments that are excluded from, or soft-failed within, the Cartesian
// product.
type Matrix struct {
	// Axes preserves declaration order; expansion order depends on it.
	Axes []Axis
	// Exclude entries are partial assignments; a candidate matching every
	// named axis of any entry is dropped.
	Exclude []map[string]string
	// SoftFail entries use the same partial-assignment matching; a surviving
	// instance that matches carries the soft-fail flag.
	SoftFail []map[string]string
}

// Axis is one named dimension of the matrix with its ordered values.
type Axis struct {
	Name   string
	Values []string
}

// Step is a single execution unit inside a job instance. Exactly one of
// Run, Upload or Download is set; the step registry dispatches on it.
type Step struct {
	Name string
	// Run is a command template. Template interpolations (${matrix.db},
	// ${env.HOME}, ...) are evaluated against the instance scope right
	// before execution.
	Run string
	// If is an optional predicate expression evaluated against prior step
	// outcomes. Empty means "run while no prior step has hard-failed".
	If string
	// ContinueOnError keeps the instance going when this step fails.
	ContinueOnError bool
	Env             map[string]string
	// Upload registers a file as a named artifact.
	Upload *ArtifactDecl
	// Download materializes every artifact matching a name prefix.
	Download *DownloadDecl
}

// ArtifactDecl declares an artifact upload. Name is a template so matrix
// instances can produce distinct artifact names.
type ArtifactDecl struct {
	Name string
	Path string
}

// DownloadDecl declares an aggregation download: every artifact whose name
// starts with Prefix is written into Dir.
type DownloadDecl struct {
	Prefix string
	Dir    string
}

// Kind reports which action a step dispatches to.
func (s *Step) Kind() string {
	switch {
	case s.Upload != nil:
		return "upload-artifact"
	case s.Download != nil:
		return "download-artifact"
	default:
		return "run"
	}
}
