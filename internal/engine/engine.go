package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/artifact"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/dag"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/step"
	"github.com/vk/flowgrid/internal/trigger"
)

var (
	// ErrEventIgnored is returned by Submit when the event does not pass
	// the workflow's trigger filter. No run is created.
	ErrEventIgnored = errors.New("event does not trigger the workflow")
	// ErrRunNotFound is returned for unknown or already discarded run IDs.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunActive is returned by Discard while the run is still executing.
	ErrRunActive = errors.New("run is still active")
)

// StoreFactory creates the artifact namespace for one run.
type StoreFactory func(ctx context.Context, runID string) (artifact.Store, error)

// Config carries the engine's collaborators and per-run defaults.
type Config struct {
	// Workers caps concurrent instances per run.
	Workers int
	// WorkDir is the working directory step commands run in.
	WorkDir string
	// Env is process-level environment, merged under the workflow's own.
	Env      map[string]string
	Registry *step.Registry
	// NewStore is called once per run; nil means in-memory stores.
	NewStore StoreFactory
}

// Engine tracks all submitted runs.
type Engine struct {
	cfg Config

	mu   sync.RWMutex
	runs map[string]*run
}

// run is the mutable tracking record for one submitted workflow.
type run struct {
	id        string
	workflow  string
	graph     *dag.Graph
	exec      *executor.Executor
	store     artifact.Store
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	// err and finishedAt are written once before done is closed and only
	// read after it.
	err        error
	finishedAt time.Time
}

// New builds an engine.
func New(cfg Config) *Engine {
	if cfg.NewStore == nil {
		cfg.NewStore = func(context.Context, string) (artifact.Store, error) {
			return artifact.NewMemoryStore(), nil
		}
	}
	return &Engine{cfg: cfg, runs: make(map[string]*run)}
}

// Submit gates the event, builds the job graph and starts executing it in
// the background. It returns the new run's ID.
func (e *Engine) Submit(ctx context.Context, model *config.Model, ev trigger.Event) (string, error) {
	logger := ctxlog.FromContext(ctx)
	wf := model.Workflow

	if !trigger.Admit(wf.On, ev) {
		return "", fmt.Errorf("%w: %s/%s", ErrEventIgnored, ev.Type, ev.Action)
	}

	graph, err := dag.Build(ctx, wf)
	if err != nil {
		return "", fmt.Errorf("building job graph: %w", err)
	}

	id := uuid.NewString()
	store, err := e.cfg.NewStore(ctx, id)
	if err != nil {
		return "", fmt.Errorf("creating artifact store: %w", err)
	}

	exec := executor.New(graph, executor.Config{
		Workers:  e.cfg.Workers,
		Registry: e.cfg.Registry,
		Store:    store,
		WorkDir:  e.cfg.WorkDir,
		Env:      mergeEnv(e.cfg.Env, wf.Env),
	})

	runLogger := logger.With("runID", id, "workflow", wf.Name)
	runCtx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), runLogger))

	r := &run{
		id:        id,
		workflow:  wf.Name,
		graph:     graph,
		exec:      exec,
		store:     store,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	e.mu.Lock()
	e.runs[id] = r
	e.mu.Unlock()

	go func() {
		defer cancel()
		runLogger.Info("🚀 Run started.", "event", ev.Type, "instances", len(graph.Nodes))
		err := exec.Run(runCtx)
		r.err = err
		r.finishedAt = time.Now()
		close(r.done)
		if err != nil {
			runLogger.Error("🏁 Run finished with failures.", "error", err)
			return
		}
		runLogger.Info("🏁 Run finished.", "warnings", exec.Warnings())
	}()

	return id, nil
}

// Wait blocks until the run reaches a terminal status or ctx expires, and
// returns the run's outcome.
func (e *Engine) Wait(ctx context.Context, id string) error {
	r, err := e.lookup(id)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cancellation of an active run. Cancelling a finished run
// is a no-op.
func (e *Engine) Cancel(id string) error {
	r, err := e.lookup(id)
	if err != nil {
		return err
	}
	r.cancel()
	return nil
}

// Discard removes a finished run and clears its artifact namespace.
func (e *Engine) Discard(ctx context.Context, id string) error {
	r, err := e.lookup(id)
	if err != nil {
		return err
	}
	select {
	case <-r.done:
	default:
		return fmt.Errorf("%w: %s", ErrRunActive, id)
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing artifacts of run %s: %w", id, err)
	}
	e.mu.Lock()
	delete(e.runs, id)
	e.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Run discarded.", "runID", id)
	return nil
}

// Shutdown cancels every active run and waits for them to settle, bounded
// by ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.RLock()
	runs := make([]*run, 0, len(e.runs))
	for _, r := range e.runs {
		runs = append(runs, r)
	}
	e.mu.RUnlock()

	for _, r := range runs {
		r.cancel()
	}
	for _, r := range runs {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *Engine) lookup(id string) (*run, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, nil
}

// mergeEnv overlays the workflow's environment on the process-level one.
func mergeEnv(base, over map[string]string) map[string]string {
	if len(base) == 0 {
		return over
	}
	merged := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}
