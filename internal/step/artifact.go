package step

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
)

// uploadArtifact reads the declared file and registers it in the run's
// artifact store under the rendered name.
func uploadArtifact(ctx context.Context, sc *Context, s *config.Step) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	sc.Scope.SetEnv(sc.Env)
	name, err := sc.Scope.RenderTemplate(s.Upload.Name)
	if err != nil {
		return nil, err
	}

	path := s.Upload.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(sc.WorkDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact source %q: %w", s.Upload.Path, err)
	}

	if err := sc.Store.Put(ctx, name, sc.InstanceID, data); err != nil {
		return nil, fmt.Errorf("uploading artifact %q: %w", name, err)
	}
	logger.Info("⬆️ Artifact uploaded.", "name", name, "bytes", len(data))
	return &Result{Output: fmt.Sprintf("uploaded %s (%d bytes)\n", name, len(data))}, nil
}

// downloadArtifact materializes every artifact matching the rendered prefix
// into the declared directory. This is the fan-in half of the artifact
// contract: an aggregation job collects what every matrix instance produced.
func downloadArtifact(ctx context.Context, sc *Context, s *config.Step) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	sc.Scope.SetEnv(sc.Env)
	prefix, err := sc.Scope.RenderTemplate(s.Download.Prefix)
	if err != nil {
		return nil, err
	}

	dir := s.Download.Dir
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(sc.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory %q: %w", dir, err)
	}

	entries, err := sc.Store.GetAll(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("fetching artifacts with prefix %q: %w", prefix, err)
	}
	for _, entry := range entries {
		dest := filepath.Join(dir, filepath.FromSlash(entry.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for artifact %q: %w", entry.Name, err)
		}
		if err := os.WriteFile(dest, entry.Data, 0o644); err != nil {
			return nil, fmt.Errorf("writing artifact %q: %w", entry.Name, err)
		}
	}
	logger.Info("⬇️ Artifacts downloaded.", "prefix", prefix, "count", len(entries))
	return &Result{Output: fmt.Sprintf("downloaded %d artifact(s) with prefix %q\n", len(entries), prefix)}, nil
}
