package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/trigger"
)

// Run executes the main application logic: submit the loaded workflow
// against the configured event, wait for the run and render its report.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.ListenAddr != "" {
		a.startControlServer(ctx)
		defer a.closeControlServer()
	}

	ev := trigger.Event{Type: a.config.EventType, Action: a.config.EventAction}
	id, err := a.engine.Submit(ctx, a.model, ev)
	if errors.Is(err, engine.ErrEventIgnored) {
		a.logger.Info("Event does not trigger this workflow; nothing to run.",
			"event", ev.Type, "action", ev.Action)
		return nil
	}
	if err != nil {
		return fmt.Errorf("submitting run: %w", err)
	}
	a.logger.Info("🚀 Starting concurrent execution...", "runID", id)

	runErr := a.engine.Wait(ctx, id)
	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		// The caller's context went away (e.g. SIGINT): cancel the run and
		// wait for it to settle so the report below is complete.
		a.logger.Warn("Interrupted, cancelling run...", "runID", id)
		_ = a.engine.Cancel(id)
		runErr = a.engine.Wait(context.Background(), id)
	}

	report, err := a.engine.Status(context.Background(), id)
	if err != nil {
		return fmt.Errorf("reading run status: %w", err)
	}
	a.renderReport(report)

	a.logger.Info("🏁 Execution finished.", "status", report.Status)
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
