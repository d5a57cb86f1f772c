package yamlcfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/config"
)

func writeDefinition(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

const sampleWorkflow = `
name: ci
on: [push, pull_request]
env:
  CI: "true"
jobs:
  lint:
    steps:
      - name: flake8
        run: flake8 .
  pytest:
    needs: lint
    timeout: 10m
    strategy:
      matrix:
        python: ["3.11", "3.12"]
        db: [sqlite, postgres]
        exclude:
          - python: "3.11"
            db: postgres
        soft-fail:
          - db: sqlite
    env:
      TOXENV: py-${matrix.python}
    steps:
      - name: tests
        run: pytest --db=${matrix.db}
      - name: report
        if: failure
        run: cat report.txt
        continue-on-error: true
      - name: upload
        upload-artifact:
          name: coverage-${matrix.db}
          path: coverage.xml
  publish:
    needs: [pytest]
    steps:
      - name: collect
        download-artifact:
          prefix: coverage-
          dir: artifacts
`

func TestLoad_FullWorkflow(t *testing.T) {
	path := writeDefinition(t, "ci.yml", sampleWorkflow)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	wf := model.Workflow
	assert.Equal(t, "ci", wf.Name)
	assert.Equal(t, []string{"push", "pull_request"}, wf.On)
	assert.Equal(t, map[string]string{"CI": "true"}, wf.Env)
	require.Len(t, wf.Jobs, 3)

	t.Run("job order follows declaration order", func(t *testing.T) {
		assert.Equal(t, "lint", wf.Jobs[0].Name)
		assert.Equal(t, "pytest", wf.Jobs[1].Name)
		assert.Equal(t, "publish", wf.Jobs[2].Name)
	})

	t.Run("matrix axes keep declaration order", func(t *testing.T) {
		m := wf.Jobs[1].Matrix
		require.NotNil(t, m)
		require.Len(t, m.Axes, 2)
		assert.Equal(t, "python", m.Axes[0].Name)
		assert.Equal(t, []string{"3.11", "3.12"}, m.Axes[0].Values)
		assert.Equal(t, "db", m.Axes[1].Name)
		assert.Equal(t, []string{"sqlite", "postgres"}, m.Axes[1].Values)
		assert.Equal(t, []map[string]string{{"python": "3.11", "db": "postgres"}}, m.Exclude)
		assert.Equal(t, []map[string]string{{"db": "sqlite"}}, m.SoftFail)
	})

	t.Run("scalar needs becomes a single-entry list", func(t *testing.T) {
		assert.Equal(t, []string{"lint"}, wf.Jobs[1].Needs)
	})

	t.Run("templates survive untouched", func(t *testing.T) {
		pytest := wf.Jobs[1]
		assert.Equal(t, "pytest --db=${matrix.db}", pytest.Steps[0].Run)
		assert.Equal(t, map[string]string{"TOXENV": "py-${matrix.python}"}, pytest.Env)
		assert.Equal(t, "coverage-${matrix.db}", pytest.Steps[2].Upload.Name)
	})

	t.Run("step attributes", func(t *testing.T) {
		pytest := wf.Jobs[1]
		require.Len(t, pytest.Steps, 3)
		report := pytest.Steps[1]
		assert.Equal(t, "failure", report.If)
		assert.True(t, report.ContinueOnError)
		assert.Equal(t, "upload-artifact", pytest.Steps[2].Kind())

		collect := wf.Jobs[2].Steps[0]
		assert.Equal(t, "download-artifact", collect.Kind())
		assert.Equal(t, "coverage-", collect.Download.Prefix)
		assert.Equal(t, "artifacts", collect.Download.Dir)
	})

	t.Run("timeout parsed as duration", func(t *testing.T) {
		assert.Equal(t, 10*time.Minute, wf.Jobs[1].Timeout)
		assert.Zero(t, wf.Jobs[0].Timeout)
	})
}

func TestLoad_MatrixWithoutStrategyNesting(t *testing.T) {
	path := writeDefinition(t, "ci.yml", `
jobs:
  build:
    matrix:
      arch: [amd64, arm64]
    steps:
      - run: make build
`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	m := model.Workflow.Jobs[0].Matrix
	require.NotNil(t, m)
	require.Len(t, m.Axes, 1)
	assert.Equal(t, "arch", m.Axes[0].Name)
}

func TestLoad_JobsAccumulateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "main.yml")
	second := filepath.Join(dir, "extra.yml")
	require.NoError(t, os.WriteFile(first, []byte(`
name: split
jobs:
  a:
    steps:
      - run: "true"
`), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(`
jobs:
  b:
    needs: [a]
    steps:
      - run: "true"
`), 0o644))

	model, err := NewLoader().Load(context.Background(), first, second)
	require.NoError(t, err)
	require.Len(t, model.Workflow.Jobs, 2)
	assert.Equal(t, "a", model.Workflow.Jobs[0].Name)
	assert.Equal(t, "b", model.Workflow.Jobs[1].Name)
}

func TestLoad_RejectsSecondHeader(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "one.yml")
	second := filepath.Join(dir, "two.yml")
	require.NoError(t, os.WriteFile(first, []byte(`
name: dup
jobs:
  a:
    steps:
      - run: "true"
`), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("name: again\n"), 0o644))

	_, err := NewLoader().Load(context.Background(), first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one file")
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantSub string
	}{
		{
			name:    "unknown workflow field",
			src:     "nome: typo\n",
			wantSub: `unknown field "nome"`,
		},
		{
			name: "unknown step field",
			src: `
jobs:
  a:
    steps:
      - ran: oops
`,
			wantSub: `unknown field "ran"`,
		},
		{
			name: "invalid timeout",
			src: `
jobs:
  a:
    timeout: soon
    steps:
      - run: "true"
`,
			wantSub: "invalid timeout",
		},
		{
			name: "step with two actions",
			src: `
jobs:
  a:
    steps:
      - run: "true"
        download-artifact:
          prefix: x-
`,
			wantSub: "more than one action",
		},
		{
			name: "soft-fail referencing unknown axis",
			src: `
jobs:
  a:
    matrix:
      db: [sqlite]
      soft-fail:
        - python: "3.11"
    steps:
      - run: "true"
`,
			wantSub: "unknown axis",
		},
		{
			name:    "root is not a mapping",
			src:     "- just\n- a\n- list\n",
			wantSub: "must be a mapping",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDefinition(t, "bad.yml", tc.src)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSub)
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

var _ config.Loader = (*Loader)(nil)
