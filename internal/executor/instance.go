package executor

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/dag"
	"github.com/vk/flowgrid/internal/expr"
	"github.com/vk/flowgrid/internal/step"
)

// runInstance executes one node's step list strictly in order. The returned
// error is the instance's failure cause, nil when every step either
// succeeded, was skipped by its predicate, or was allowed to fail.
func (e *Executor) runInstance(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("node", node.ID)
	logger.Info("▶️ Starting job instance")

	instCtx := ctx
	if node.Job.Timeout > 0 {
		var cancel context.CancelFunc
		instCtx, cancel = context.WithTimeout(ctx, node.Job.Timeout)
		defer cancel()
	}

	scope := expr.NewScope()
	scope.SetMatrix(node.Assignment)

	env, err := e.jobEnv(node, scope)
	if err != nil {
		return err
	}
	sc := &step.Context{
		InstanceID: node.ID,
		Assignment: node.Assignment,
		WorkDir:    e.workDir,
		Env:        env,
		Store:      e.store,
		Scope:      scope,
	}

	failed := false
	var firstErr error

	for i, s := range node.Job.Steps {
		name := stepName(i, s)
		scope.SetOutcome(failed, instCtx.Err() != nil)

		run, predErr := shouldRun(scope, s, failed, instCtx.Err() != nil)
		if predErr != nil {
			node.Results = append(node.Results, dag.StepResult{
				Name: name, Kind: s.Kind(), Status: "failed", Err: predErr.Error(),
			})
			if !failed {
				failed = true
				firstErr = fmt.Errorf("step %s: %w", name, predErr)
			}
			continue
		}
		if !run {
			logger.Debug("Step skipped by predicate.", "step", name)
			node.Results = append(node.Results, dag.StepResult{Name: name, Kind: s.Kind(), Status: "skipped"})
			continue
		}

		logger.Debug("Executing step.", "step", name, "kind", s.Kind())
		res, stepErr := e.registry.Execute(instCtx, sc, s)

		result := dag.StepResult{Name: name, Kind: s.Kind(), Status: "succeeded"}
		if res != nil {
			result.ExitCode = res.ExitCode
			result.Output = res.Output
		}

		switch {
		case stepErr == nil:
			// keep "succeeded"
		case s.Kind() != "run":
			// Artifact store trouble is reported against the instance but
			// never fails the run.
			result.Status = "warning"
			result.Err = stepErr.Error()
			logger.Error("Artifact step failed; continuing.", "step", name, "error", stepErr)
		case s.ContinueOnError:
			result.Status = "failed"
			result.Err = stepErr.Error()
			logger.Warn("Step failed but continue-on-error is set.", "step", name, "error", stepErr)
		default:
			result.Status = "failed"
			result.Err = stepErr.Error()
			if !failed {
				failed = true
				firstErr = fmt.Errorf("step %s: %w", name, stepErr)
			}
		}
		node.Results = append(node.Results, result)
	}

	if failed {
		logger.Info("❌ Job instance failed")
		return firstErr
	}
	logger.Info("✅ Job instance finished")
	return nil
}

// jobEnv merges the workflow environment under the job's own, rendering
// job-level values against the matrix scope.
func (e *Executor) jobEnv(node *dag.Node, scope *expr.Scope) (map[string]string, error) {
	env := make(map[string]string, len(e.env)+len(node.Job.Env))
	for k, v := range e.env {
		env[k] = v
	}
	for k, v := range node.Job.Env {
		rendered, err := scope.RenderTemplate(v)
		if err != nil {
			return nil, fmt.Errorf("rendering env %s: %w", k, err)
		}
		env[k] = rendered
	}
	return env, nil
}

// shouldRun decides whether a step executes. Without an explicit predicate
// a step runs only while the instance is clean and the run is live; an
// explicit predicate can opt into failure or cancellation handling.
func shouldRun(scope *expr.Scope, s *config.Step, failed, cancelled bool) (bool, error) {
	if s.If == "" {
		return !failed && !cancelled, nil
	}
	return scope.EvalBool(s.If)
}

// stepName labels a step for results and logs.
func stepName(i int, s *config.Step) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step-%d", i+1)
}
