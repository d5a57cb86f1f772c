package engine

import (
	"context"
	"errors"
	"time"

	"github.com/vk/flowgrid/internal/dag"
)

// Run status values as reported by Status.
const (
	// StatusRunning means at least one instance is not yet terminal.
	StatusRunning = "running"
	// StatusSucceeded means every instance succeeded outright.
	StatusSucceeded = "succeeded"
	// StatusPartiallyFailed means the run is green but soft-fail instances
	// failed; Warnings counts them.
	StatusPartiallyFailed = "partially-failed"
	// StatusFailed means at least one instance hard-failed.
	StatusFailed = "failed"
	// StatusCancelled means the run was cancelled before finishing.
	StatusCancelled = "cancelled"
)

// Report is a point-in-time snapshot of one run.
type Report struct {
	RunID     string           `json:"run_id"`
	Workflow  string           `json:"workflow"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	Warnings  int              `json:"warnings"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Instances []InstanceReport `json:"instances"`
	Artifacts []string         `json:"artifacts,omitempty"`
}

// InstanceReport is the snapshot of one job instance.
type InstanceReport struct {
	ID       string           `json:"id"`
	Job      string           `json:"job"`
	State    string           `json:"state"`
	SoftFail bool             `json:"soft_fail,omitempty"`
	Error    string           `json:"error,omitempty"`
	Steps    []dag.StepResult `json:"steps,omitempty"`
}

// Status snapshots the run. Instance order follows the graph's build order,
// so repeated calls render stably.
func (e *Engine) Status(ctx context.Context, id string) (*Report, error) {
	r, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     r.id,
		Workflow:  r.workflow,
		StartedAt: r.startedAt,
	}

	select {
	case <-r.done:
		report.Status = reduceOutcome(r.err, r.exec.Warnings())
		report.Warnings = r.exec.Warnings()
		report.Duration = r.finishedAt.Sub(r.startedAt)
		if r.err != nil {
			report.Error = r.err.Error()
		}
		if names, err := r.store.List(ctx); err == nil {
			report.Artifacts = names
		}
	default:
		report.Status = StatusRunning
		report.Duration = time.Since(r.startedAt)
	}

	for _, nodeID := range r.graph.Order {
		node := r.graph.Nodes[nodeID]
		inst := InstanceReport{
			ID:       node.ID,
			Job:      node.Job.Name,
			State:    node.State().String(),
			SoftFail: node.SoftFail,
		}
		// Err and Results are only safe to read once the node is terminal.
		if node.State().Terminal() {
			if node.Err != nil {
				inst.Error = node.Err.Error()
			}
			inst.Steps = node.Results
		}
		report.Instances = append(report.Instances, inst)
	}
	return report, nil
}

// reduceOutcome maps the executor's verdict to a run status.
func reduceOutcome(err error, warnings int) string {
	switch {
	case err == nil && warnings > 0:
		return StatusPartiallyFailed
	case err == nil:
		return StatusSucceeded
	// Instance timeouts surface as DeadlineExceeded and count as plain
	// failures; only Cancel produces context.Canceled here.
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusFailed
	}
}
