package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/flowgrid/internal/artifact"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/dag"
	"github.com/vk/flowgrid/internal/step"
)

// Config carries the executor's collaborators and limits.
type Config struct {
	// Workers caps the number of simultaneously running instances.
	Workers  int
	Registry *step.Registry
	Store    artifact.Store
	// WorkDir is the working directory step commands run in.
	WorkDir string
	// Env is the workflow-level environment, merged under each job's own.
	Env map[string]string
}

// Executor runs one validated graph to completion.
type Executor struct {
	graph    *dag.Graph
	workers  int
	registry *step.Registry
	store    artifact.Store
	workDir  string
	env      map[string]string
	wg       sync.WaitGroup
}

// New builds an executor for the given graph.
func New(graph *dag.Graph, cfg Config) *Executor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	registry := cfg.Registry
	if registry == nil {
		registry = step.NewRegistry()
	}
	store := cfg.Store
	if store == nil {
		store = artifact.NewMemoryStore()
	}
	return &Executor{
		graph:    graph,
		workers:  workers,
		registry: registry,
		store:    store,
		workDir:  cfg.WorkDir,
		env:      cfg.Env,
	}
}

// Run executes the graph and blocks until every node is terminal. It
// returns nil when the run is green (soft failures included) and an error
// naming the hard-failed nodes otherwise.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))

	rootCount := 0
	for _, id := range e.graph.Order {
		node := e.graph.Nodes[id]
		if node.RemainingDeps() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Executor initialized.", "nodes", len(e.graph.Nodes), "roots", rootCount, "workers", e.workers)

	e.wg.Add(len(e.graph.Nodes))
	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Debug("Waiting for all nodes to complete...")
	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes completed.")

	return e.summarize(ctx)
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "node", node.ID)

		if ctx.Err() != nil {
			// Run cancelled: ready-but-unstarted nodes never run. Their
			// dependents were never released either, so the skip must
			// cascade or their WaitGroup slots leak and Run never returns.
			if node.TransitionFrom(dag.Pending, dag.Skipped) {
				workerLogger.Warn("Run cancelled, skipping node.")
				node.Err = fmt.Errorf("cancelled: %w", ctx.Err())
				e.wg.Done()
				e.skipDependents(ctx, node)
			}
			continue
		}

		// Losing this transition means a cascade already skipped the node
		// (and accounted for it) while it sat in the queue.
		if !node.TransitionFrom(dag.Pending, dag.Running) {
			continue
		}

		workerLogger.Debug("Worker picked up node.")
		err := e.runInstance(ctx, node)

		switch {
		case err == nil:
			node.SetState(dag.Succeeded)
			workerLogger.Debug("Node succeeded.")
			e.releaseDependents(node, readyChan)
		case node.SoftFail:
			node.Err = err
			node.SetState(dag.SoftFailed)
			workerLogger.Warn("Node failed but is marked soft-fail; dependents proceed.", "error", err)
			e.releaseDependents(node, readyChan)
		default:
			node.Err = err
			node.SetState(dag.Failed)
			workerLogger.Error("Node failed.", "error", err)
			e.skipDependents(ctx, node)
		}
		e.wg.Done()
	}
}

// releaseDependents decrements dependents' counters and enqueues the ones
// that just became ready.
func (e *Executor) releaseDependents(node *dag.Node, readyChan chan *dag.Node) {
	for _, dependent := range node.Dependents {
		if dependent.DependencyDone() {
			readyChan <- dependent
		}
	}
}

// skipDependents marks the failed node's dependent closure as skipped.
// The CompareAndSwap arbitrates against workers: whoever wins the Pending
// transition accounts for the node exactly once.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		if dependent.TransitionFrom(dag.Pending, dag.Skipped) {
			logger.Warn("Skipping node due to upstream failure.", "node", dependent.ID, "failed_dependency", node.ID)
			dependent.Err = fmt.Errorf("skipped due to upstream failure of %q", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		}
	}
}

// summarize reduces terminal node states to the run's outcome.
func (e *Executor) summarize(ctx context.Context) error {
	var failed []string
	var rootCause error
	skipped := 0

	for _, id := range e.graph.Order {
		node := e.graph.Nodes[id]
		switch node.State() {
		case dag.Failed:
			failed = append(failed, node.ID)
			if rootCause == nil {
				rootCause = node.Err
			}
		case dag.Skipped:
			skipped++
		}
	}

	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	if skipped > 0 {
		// Skips without a hard failure can only come from cancellation.
		if cause := ctx.Err(); cause != nil {
			return fmt.Errorf("execution cancelled: %w", cause)
		}
		return fmt.Errorf("%d node(s) skipped without a recorded cause", skipped)
	}
	return nil
}

// Warnings counts soft-failed nodes after a run.
func (e *Executor) Warnings() int {
	count := 0
	for _, node := range e.graph.Nodes {
		if node.State() == dag.SoftFailed {
			count++
		}
	}
	return count
}
