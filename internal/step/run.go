package step

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
)

// runCommand executes a step's command template under sh -c. The child
// inherits the engine's environment, extended with the workflow/job/step
// env and one MATRIX_<AXIS> variable per matrix axis. Cancellation and
// per-instance timeouts arrive through ctx; CommandContext delivers the
// termination signal.
func runCommand(ctx context.Context, sc *Context, s *config.Step) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	env, err := mergedEnv(sc, s)
	if err != nil {
		return nil, err
	}
	sc.Scope.SetEnv(env)

	command, err := sc.Scope.RenderTemplate(s.Run)
	if err != nil {
		return nil, err
	}
	logger.Debug("Running step command.", "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = sc.WorkDir
	cmd.Env = childEnv(sc, env)

	// Killing only sh would leave its children holding the output pipes and
	// cmd.Run blocked until they exit on their own. Run the step in its own
	// process group, signal the whole group on cancellation, and cap how
	// long Wait lingers on stray pipe writers.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	result := &Result{Output: output.String()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		// Timeout or cancellation; the scheduler treats both as failure.
		return result, fmt.Errorf("command terminated: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return result, fmt.Errorf("command exited with code %d", result.ExitCode)
	}
	return result, fmt.Errorf("starting command: %w", runErr)
}

// mergedEnv renders the step-level env templates on top of the shared env.
func mergedEnv(sc *Context, s *config.Step) (map[string]string, error) {
	env := make(map[string]string, len(sc.Env)+len(s.Env))
	for k, v := range sc.Env {
		env[k] = v
	}
	// Step env values may themselves interpolate matrix values, so the
	// scope must see the shared env before rendering them.
	sc.Scope.SetEnv(env)
	for k, v := range s.Env {
		rendered, err := sc.Scope.RenderTemplate(v)
		if err != nil {
			return nil, fmt.Errorf("rendering env %s: %w", k, err)
		}
		env[k] = rendered
	}
	return env, nil
}

// childEnv assembles the process environment: inherited, then declared env,
// then the matrix assignment as MATRIX_<AXIS> variables.
func childEnv(sc *Context, env map[string]string) []string {
	out := os.Environ()
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	for axis, value := range sc.Assignment {
		out = append(out, matrixEnvName(axis)+"="+value)
	}
	return out
}

// matrixEnvName maps an axis name to an environment variable name,
// e.g. "db" -> "MATRIX_DB", "django-version" -> "MATRIX_DJANGO_VERSION".
func matrixEnvName(axis string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, axis)
	return "MATRIX_" + mapped
}
