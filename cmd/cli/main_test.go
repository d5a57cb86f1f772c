package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A definition with a syntax error makes app.NewApp panic during the
	// loading phase; run must recover it into an error.
	invalidHCL := `
job "broken" {
  step "s" {
`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))

	out := &bytes.Buffer{}
	err := run(out, []string{filePath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "application startup panicked")
	assert.Contains(t, err.Error(), "failed to load workflow definition")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	filePath := filepath.Join(dir, "ci.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`
workflow {
  name = "smoke"
  on   = ["push"]
}

job "hello" {
  step "greet" {
    run = "echo hello"
  }
}
`), 0o600))

	out := &bytes.Buffer{}
	err := run(out, []string{"-workdir", dir, "-log-level", "error", filePath})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "✅ job.hello")
}
