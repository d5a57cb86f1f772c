package dag

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/matrix"
)

// Graph is the validated set of job-instance nodes for one run. The node
// topology is immutable after Build; only per-node execution state changes
// afterwards.
type Graph struct {
	// Nodes is keyed by node ID.
	Nodes map[string]*Node
	// Order lists node IDs in creation order (job declaration order, then
	// matrix expansion order), for deterministic reports.
	Order []string
	// byJob groups instances by job name for `needs` fan-in.
	byJob map[string][]*Node
}

// Build expands every job's matrix and constructs the validated instance
// graph. It returns a ConfigError for matrix problems and a GraphError for
// dangling `needs` references or cycles.
func Build(ctx context.Context, wf *config.Workflow) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	graph := &Graph{
		Nodes: make(map[string]*Node),
		byJob: make(map[string][]*Node),
	}

	// First pass: expand matrices and create one node per instance.
	for _, job := range wf.Jobs {
		assignments, err := matrix.Expand(job.Matrix)
		if err != nil {
			return nil, err
		}
		for _, assignment := range assignments {
			node := &Node{
				ID:         instanceID(job, assignment),
				Job:        job,
				Assignment: assignment,
				SoftFail:   matrix.SoftFail(job.Matrix, assignment),
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
			graph.Nodes[node.ID] = node
			graph.Order = append(graph.Order, node.ID)
			graph.byJob[job.Name] = append(graph.byJob[job.Name], node)
		}
		logger.Debug("Build: job expanded.", "job", job.Name, "instances", len(assignments))
	}

	// Second pass: translate `needs` into edges. Every instance of the
	// needed job gates every instance of the needing one.
	for _, job := range wf.Jobs {
		for _, need := range job.Needs {
			providers, ok := graph.byJob[need]
			if !ok {
				return nil, newGraphError("job %q needs unknown job %q", job.Name, need)
			}
			for _, to := range graph.byJob[job.Name] {
				for _, from := range providers {
					to.Deps[from.ID] = from
					from.Dependents[to.ID] = to
				}
			}
		}
	}
	logger.Debug("Build: node linking complete.", "node_count", len(graph.Nodes))

	// Third pass: seed counters, then validate.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}
	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return graph, nil
}

// Instances returns the nodes expanded from the named job, in expansion
// order.
func (g *Graph) Instances(jobName string) []*Node {
	return g.byJob[jobName]
}

// detectCycles checks for circular dependencies using DFS with a
// recursion-stack set.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return newGraphError("cycle detected involving %q", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	// Iterate in creation order so the reported cycle is stable.
	for _, id := range g.Order {
		if !visited[id] {
			if err := visit(g.Nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// instanceID derives the unique node ID for a (job, assignment) pair.
func instanceID(job *config.Job, assignment matrix.Assignment) string {
	label := matrix.Label(job.Matrix, assignment)
	if label == "" {
		return fmt.Sprintf("job.%s", job.Name)
	}
	return fmt.Sprintf("job.%s[%s]", job.Name, label)
}
