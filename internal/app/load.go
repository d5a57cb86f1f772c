package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/fsutil"
	"github.com/vk/flowgrid/internal/hcl"
	"github.com/vk/flowgrid/internal/yamlcfg"
)

// loadModel discovers the definition files under path and loads them
// through the matching format loader. A run uses one format; mixing HCL
// and YAML files in one directory is rejected.
func loadModel(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("workflow path: %w", err)
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = fsutil.FindFilesByExtensions(path, ".hcl", ".yml", ".yaml")
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
	}

	var hclPaths, yamlPaths []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".hcl") {
			hclPaths = append(hclPaths, p)
		} else {
			yamlPaths = append(yamlPaths, p)
		}
	}

	switch {
	case len(hclPaths) == 0 && len(yamlPaths) == 0:
		return nil, fmt.Errorf("no workflow definitions found under %s", path)
	case len(hclPaths) > 0 && len(yamlPaths) > 0:
		return nil, fmt.Errorf("mixed HCL and YAML definitions under %s; use one format per run", path)
	case len(hclPaths) > 0:
		logger.Debug("Loading HCL definitions.", "files", len(hclPaths))
		return hcl.NewLoader().Load(ctx, hclPaths...)
	default:
		logger.Debug("Loading YAML definitions.", "files", len(yamlPaths))
		return yamlcfg.NewLoader().Load(ctx, yamlPaths...)
	}
}
