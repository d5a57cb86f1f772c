package step

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/artifact"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/expr"
	"github.com/vk/flowgrid/internal/matrix"
)

// Context carries everything one instance's steps share: identity, matrix
// assignment, environment, working directory, the run's artifact store and
// the instance's expression scope.
type Context struct {
	InstanceID string
	Assignment matrix.Assignment
	WorkDir    string
	// Env is the workflow+job environment; step-level env merges on top.
	Env   map[string]string
	Store artifact.Store
	Scope *expr.Scope
}

// Result is the observable outcome of one executed step.
type Result struct {
	ExitCode int
	Output   string
}

// Handler executes one step kind. A non-nil error marks the step failed;
// Result may still carry captured output alongside an error.
type Handler func(ctx context.Context, sc *Context, s *config.Step) (*Result, error)

// Registry maps step kinds to their handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns a registry with the built-in actions installed.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register("run", runCommand)
	r.Register("upload-artifact", uploadArtifact)
	r.Register("download-artifact", downloadArtifact)
	return r
}

// Register installs a handler for a step kind, replacing any previous one.
func (r *Registry) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// Execute dispatches the step to its handler.
func (r *Registry) Execute(ctx context.Context, sc *Context, s *config.Step) (*Result, error) {
	kind := s.Kind()
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for step kind %q", kind)
	}
	return h(ctx, sc, s)
}
