package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/trigger"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// model wraps a job list into a runnable workflow definition.
func model(t *testing.T, jobs ...*config.Job) *config.Model {
	t.Helper()
	m := &config.Model{Workflow: &config.Workflow{Name: "test", Jobs: jobs}}
	require.NoError(t, m.Validate())
	return m
}

func runStep(cmd string) *config.Step {
	return &config.Step{Run: cmd}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Config{Workers: 4, WorkDir: t.TempDir()})
}

func TestSubmitWaitStatus(t *testing.T) {
	e := newTestEngine(t)
	m := model(t,
		&config.Job{Name: "build", Steps: []*config.Step{runStep("true")}},
		&config.Job{Name: "test", Needs: []string{"build"}, Steps: []*config.Step{runStep("true")}},
	)

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, e.Wait(context.Background(), id))

	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, "test", report.Workflow)
	assert.Zero(t, report.Warnings)
	require.Len(t, report.Instances, 2)
	assert.Equal(t, "job.build", report.Instances[0].ID)
	assert.Equal(t, "succeeded", report.Instances[0].State)
	assert.Equal(t, "succeeded", report.Instances[1].State)
}

func TestSubmitRejectsFilteredEvent(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "a", Steps: []*config.Step{runStep("true")}})
	m.Workflow.On = []string{"push"}

	_, err := e.Submit(context.Background(), m, trigger.Event{Type: "schedule"})
	require.ErrorIs(t, err, ErrEventIgnored)

	_, err = e.Submit(context.Background(), m, trigger.Event{Type: "pull_request", Action: "labeled"})
	assert.ErrorIs(t, err, ErrEventIgnored)
}

func TestSubmitRejectsCyclicGraph(t *testing.T) {
	e := newTestEngine(t)
	m := model(t,
		&config.Job{Name: "a", Needs: []string{"b"}, Steps: []*config.Step{runStep("true")}},
		&config.Job{Name: "b", Needs: []string{"a"}, Steps: []*config.Step{runStep("true")}},
	)

	_, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building job graph")
}

func TestStatusWhileRunning(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "slow", Steps: []*config.Step{runStep("sleep 5")}})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, e.Cancel(id))
		_ = e.Wait(context.Background(), id)
	}()

	time.Sleep(100 * time.Millisecond)
	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, report.Status)
	assert.Equal(t, "running", report.Instances[0].State)
}

func TestCancelActiveRun(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "slow", Steps: []*config.Step{runStep("sleep 30")}})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, e.Cancel(id))

	start := time.Now()
	err = e.Wait(context.Background(), id)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, report.Status)
}

func TestSoftFailReportsPartially(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{
		Name: "flaky",
		Matrix: &config.Matrix{
			Axes:     []config.Axis{{Name: "mode", Values: []string{"stable", "experimental"}}},
			SoftFail: []map[string]string{{"mode": "experimental"}},
		},
		Steps: []*config.Step{runStep(`test "${matrix.mode}" = "stable"`)},
	})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	require.NoError(t, e.Wait(context.Background(), id))

	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyFailed, report.Status)
	assert.Equal(t, 1, report.Warnings)
}

func TestFailedRunStatus(t *testing.T) {
	e := newTestEngine(t)
	m := model(t,
		&config.Job{Name: "broken", Steps: []*config.Step{runStep("exit 1")}},
		&config.Job{Name: "after", Needs: []string{"broken"}, Steps: []*config.Step{runStep("true")}},
	)

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	require.Error(t, e.Wait(context.Background(), id))

	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Status)
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, "failed", report.Instances[0].State)
	assert.Equal(t, "skipped", report.Instances[1].State)
	assert.Contains(t, report.Instances[1].Error, "upstream failure")
}

func TestArtifactsAppearInReport(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "build", Steps: []*config.Step{
		runStep("echo data > out.bin"),
		{Upload: &config.ArtifactDecl{Name: "binary", Path: "out.bin"}},
	}})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	require.NoError(t, e.Wait(context.Background(), id))

	report, err := e.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"binary"}, report.Artifacts)
}

func TestDiscard(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "a", Steps: []*config.Step{runStep("true")}})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)
	require.NoError(t, e.Wait(context.Background(), id))

	require.NoError(t, e.Discard(context.Background(), id))

	_, err = e.Status(context.Background(), id)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, e.Discard(context.Background(), id), ErrRunNotFound)
}

func TestDiscardRefusesActiveRun(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "slow", Steps: []*config.Step{runStep("sleep 30")}})

	id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.ErrorIs(t, e.Discard(context.Background(), id), ErrRunActive)

	require.NoError(t, e.Cancel(id))
	_ = e.Wait(context.Background(), id)
}

func TestUnknownRunID(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, e.Cancel("nope"), ErrRunNotFound)
	assert.ErrorIs(t, e.Wait(context.Background(), "nope"), ErrRunNotFound)
}

func TestShutdownCancelsEverything(t *testing.T) {
	e := newTestEngine(t)
	m := model(t, &config.Job{Name: "slow", Steps: []*config.Step{runStep("sleep 30")}})

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := e.Submit(context.Background(), m, trigger.Event{Type: "push"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(shutdownCtx))

	for _, id := range ids {
		report, err := e.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, report.Status)
	}
}
