package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
)

// Loader implements config.Loader for HCL definitions.
type Loader struct {
	parser *hclparse.Parser
	// sources keeps raw file bytes so unevaluated expressions can be
	// carried to the model as source text.
	sources map[string][]byte
}

// NewLoader returns a fresh HCL loader.
func NewLoader() *Loader {
	return &Loader{
		parser:  hclparse.NewParser(),
		sources: make(map[string][]byte),
	}
}

// Load implements config.Loader. Jobs accumulate across files in file
// order; only one file may carry the workflow header.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	wf := &config.Workflow{}
	haveHeader := false

	for _, path := range paths {
		logger.Debug("Parsing definition file.", "path", path)
		file, diags := l.parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
		l.sources[path] = file.Bytes

		var schema fileSchema
		if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		if schema.Workflow != nil {
			if haveHeader {
				return nil, config.NewConfigError("workflow", "workflow block declared in more than one file")
			}
			haveHeader = true
			if err := l.translateHeader(schema.Workflow, wf); err != nil {
				return nil, err
			}
		}
		for _, jb := range schema.Jobs {
			job, err := l.translateJob(jb)
			if err != nil {
				return nil, err
			}
			wf.Jobs = append(wf.Jobs, job)
		}
	}

	model := &config.Model{Workflow: wf}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Definition loaded.", "jobs", len(wf.Jobs))
	return model, nil
}

// translateHeader fills the workflow-level fields.
func (l *Loader) translateHeader(b *workflowBlock, wf *config.Workflow) error {
	wf.Name = b.Name
	wf.On = b.On
	env, err := l.templateMap(b.Env, "workflow env")
	if err != nil {
		return err
	}
	wf.Env = env
	return nil
}

// translateJob converts one job block into the agnostic model.
func (l *Loader) translateJob(b *jobBlock) (*config.Job, error) {
	job := &config.Job{
		Name:  b.Name,
		Needs: b.Needs,
	}

	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return nil, config.NewConfigError("job "+b.Name, "invalid timeout %q: %v", b.Timeout, err)
		}
		job.Timeout = d
	}

	env, err := l.templateMap(b.Env, "job "+b.Name+" env")
	if err != nil {
		return nil, err
	}
	job.Env = env

	if b.Matrix != nil {
		m, err := l.translateMatrix(b.Name, b.Matrix)
		if err != nil {
			return nil, err
		}
		job.Matrix = m
	}

	for _, sb := range b.Steps {
		s, err := l.translateStep(sb)
		if err != nil {
			return nil, err
		}
		job.Steps = append(job.Steps, s)
	}
	return job, nil
}

// translateMatrix evaluates the static matrix declaration.
func (l *Loader) translateMatrix(jobName string, b *matrixBlock) (*config.Matrix, error) {
	m := &config.Matrix{}
	for _, axis := range b.Axes {
		m.Axes = append(m.Axes, config.Axis{Name: axis.Name, Values: axis.Values})
	}

	exclude, err := partialAssignments(b.Exclude, "job "+jobName+" exclude")
	if err != nil {
		return nil, err
	}
	m.Exclude = exclude

	softFail, err := partialAssignments(b.SoftFail, "job "+jobName+" soft_fail")
	if err != nil {
		return nil, err
	}
	m.SoftFail = softFail
	return m, nil
}

// translateStep converts one step block, carrying templates as raw source.
func (l *Loader) translateStep(b *stepBlock) (*config.Step, error) {
	s := &config.Step{
		Name:            b.Name,
		Run:             l.exprSource(b.Run),
		If:              l.exprSource(b.If),
		ContinueOnError: b.ContinueOnError,
	}

	env, err := l.templateMap(b.Env, "step "+b.Name+" env")
	if err != nil {
		return nil, err
	}
	s.Env = env

	if b.Artifact != nil {
		s.Upload = &config.ArtifactDecl{
			Name: l.exprSource(b.Artifact.Name),
			Path: b.Artifact.Path,
		}
	}
	if b.Download != nil {
		s.Download = &config.DownloadDecl{
			Prefix: l.exprSource(b.Download.Prefix),
			Dir:    b.Download.Dir,
		}
	}
	return s, nil
}
