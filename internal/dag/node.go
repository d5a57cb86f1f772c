package dag

import (
	"sync/atomic"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/matrix"
)

// State is the lifecycle state of one job instance.
type State int32

const (
	// Pending nodes are waiting for dependencies or for a worker.
	Pending State = iota
	// Running nodes have a worker executing their step list.
	Running
	// Succeeded nodes completed every step without a hard failure.
	Succeeded
	// SoftFailed nodes failed but carry the soft-fail flag: dependents are
	// released and the run stays green, but the failure is reported.
	SoftFailed
	// Failed nodes hard-failed a step or timed out.
	Failed
	// Skipped nodes never ran: an upstream hard failure or a cancellation.
	Skipped
)

// String renders the state for logs and reports.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case SoftFailed:
		return "soft-failed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, SoftFailed, Failed, Skipped:
		return true
	}
	return false
}

// Satisfied reports whether a dependency in this state releases its
// dependents.
func (s State) Satisfied() bool {
	return s == Succeeded || s == SoftFailed
}

// StepResult records the outcome of one step for the run report.
type StepResult struct {
	Name     string
	Kind     string
	Status   string
	ExitCode int
	Output   string
	Err      string
}

// Node is one job instance in the graph.
type Node struct {
	// ID is unique within the graph, e.g. "job.pytest[django=4.2,db=mysql8.0]".
	ID string
	// Job is the immutable definition this instance was expanded from.
	Job *config.Job
	// Assignment is the matrix assignment; empty for singleton jobs.
	Assignment matrix.Assignment
	// SoftFail marks instances whose failure must not cascade.
	SoftFail bool

	// Deps and Dependents are fixed after Build; only state fields mutate
	// during execution.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// Err and Results are written by the single worker that owns the node
	// while it is Running, and only read after it turns terminal.
	Err     error
	Results []StepResult

	state    atomic.Int32
	depCount atomic.Int32
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState unconditionally stores a new state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// TransitionFrom atomically moves the node from one state to another. It
// returns false if the node was no longer in the expected state, which is
// how the executor arbitrates between a worker picking a node up and a
// cascade skipping it.
func (n *Node) TransitionFrom(from, to State) bool {
	return n.state.CompareAndSwap(int32(from), int32(to))
}

// SetInitialCounters seeds the remaining-dependency counter. Called once
// after linking, before execution starts.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// RemainingDeps returns the number of unsatisfied dependencies.
func (n *Node) RemainingDeps() int32 {
	return n.depCount.Load()
}

// DependencyDone decrements the remaining-dependency counter and reports
// whether the node just became ready.
func (n *Node) DependencyDone() bool {
	return n.depCount.Add(-1) == 0
}
