package yamlcfg

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader implements config.Loader for YAML definitions.
type Loader struct{}

// NewLoader returns a fresh YAML loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader. Jobs accumulate across files in file
// order; only one file may carry the workflow header fields.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	wf := &config.Workflow{}
	haveHeader := false

	for _, path := range paths {
		logger.Debug("Parsing definition file.", "path", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if len(doc.Content) == 0 {
			continue
		}
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return nil, config.NewConfigError(path, "document root must be a mapping")
		}

		hasHeaderFields, err := translateDocument(root, wf)
		if err != nil {
			return nil, err
		}
		if hasHeaderFields {
			if haveHeader {
				return nil, config.NewConfigError("workflow", "workflow header declared in more than one file")
			}
			haveHeader = true
		}
	}

	model := &config.Model{Workflow: wf}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Definition loaded.", "jobs", len(wf.Jobs))
	return model, nil
}

// translateDocument folds one document's fields into the workflow and
// reports whether the document carried any header field.
func translateDocument(root *yaml.Node, wf *config.Workflow) (bool, error) {
	header := false
	for key, val := range mappingPairs(root) {
		switch key.Value {
		case "name":
			wf.Name = val.Value
			header = true
		case "on":
			on, err := stringList(val, "workflow on")
			if err != nil {
				return false, err
			}
			wf.On = on
			header = true
		case "env":
			env, err := stringMap(val, "workflow env")
			if err != nil {
				return false, err
			}
			wf.Env = env
			header = true
		case "jobs":
			if val.Kind != yaml.MappingNode {
				return false, config.NewConfigError("jobs", "must be a mapping of job names")
			}
			for name, body := range mappingPairs(val) {
				job, err := translateJob(name.Value, body)
				if err != nil {
					return false, err
				}
				wf.Jobs = append(wf.Jobs, job)
			}
		default:
			return false, config.NewConfigError("workflow", "unknown field %q", key.Value)
		}
	}
	return header, nil
}

func translateJob(name string, node *yaml.Node) (*config.Job, error) {
	if node.Kind != yaml.MappingNode {
		return nil, config.NewConfigError("job "+name, "must be a mapping")
	}
	job := &config.Job{Name: name}

	for key, val := range mappingPairs(node) {
		switch key.Value {
		case "needs":
			needs, err := stringList(val, "job "+name+" needs")
			if err != nil {
				return nil, err
			}
			job.Needs = needs
		case "timeout":
			d, err := time.ParseDuration(val.Value)
			if err != nil {
				return nil, config.NewConfigError("job "+name, "invalid timeout %q: %v", val.Value, err)
			}
			job.Timeout = d
		case "env":
			env, err := stringMap(val, "job "+name+" env")
			if err != nil {
				return nil, err
			}
			job.Env = env
		case "strategy":
			m, err := translateStrategy(name, val)
			if err != nil {
				return nil, err
			}
			job.Matrix = m
		case "matrix":
			m, err := translateMatrix(name, val)
			if err != nil {
				return nil, err
			}
			job.Matrix = m
		case "steps":
			if val.Kind != yaml.SequenceNode {
				return nil, config.NewConfigError("job "+name, "steps must be a list")
			}
			for i, sn := range val.Content {
				s, err := translateStep(name, i, sn)
				if err != nil {
					return nil, err
				}
				job.Steps = append(job.Steps, s)
			}
		default:
			return nil, config.NewConfigError("job "+name, "unknown field %q", key.Value)
		}
	}
	return job, nil
}

// translateStrategy unwraps the Actions-style `strategy: matrix:` nesting.
func translateStrategy(jobName string, node *yaml.Node) (*config.Matrix, error) {
	if node.Kind != yaml.MappingNode {
		return nil, config.NewConfigError("job "+jobName, "strategy must be a mapping")
	}
	for key, val := range mappingPairs(node) {
		if key.Value != "matrix" {
			return nil, config.NewConfigError("job "+jobName, "unknown strategy field %q", key.Value)
		}
		return translateMatrix(jobName, val)
	}
	return nil, nil
}

// translateMatrix reads axes in declaration order. The reserved keys
// `exclude` and `soft-fail` hold partial-assignment lists, every other key
// is an axis.
func translateMatrix(jobName string, node *yaml.Node) (*config.Matrix, error) {
	if node.Kind != yaml.MappingNode {
		return nil, config.NewConfigError("job "+jobName, "matrix must be a mapping")
	}
	m := &config.Matrix{}
	for key, val := range mappingPairs(node) {
		switch key.Value {
		case "exclude":
			entries, err := partialAssignments(val, "job "+jobName+" exclude")
			if err != nil {
				return nil, err
			}
			m.Exclude = entries
		case "soft-fail":
			entries, err := partialAssignments(val, "job "+jobName+" soft-fail")
			if err != nil {
				return nil, err
			}
			m.SoftFail = entries
		default:
			values, err := stringList(val, "job "+jobName+" axis "+key.Value)
			if err != nil {
				return nil, err
			}
			m.Axes = append(m.Axes, config.Axis{Name: key.Value, Values: values})
		}
	}
	return m, nil
}

func translateStep(jobName string, idx int, node *yaml.Node) (*config.Step, error) {
	subject := fmt.Sprintf("step %s[%d]", jobName, idx)
	if node.Kind != yaml.MappingNode {
		return nil, config.NewConfigError(subject, "must be a mapping")
	}
	s := &config.Step{}

	for key, val := range mappingPairs(node) {
		switch key.Value {
		case "name":
			s.Name = val.Value
		case "run":
			s.Run = val.Value
		case "if":
			s.If = val.Value
		case "continue-on-error":
			var b bool
			if err := val.Decode(&b); err != nil {
				return nil, config.NewConfigError(subject, "continue-on-error must be a bool: %v", err)
			}
			s.ContinueOnError = b
		case "env":
			env, err := stringMap(val, subject+" env")
			if err != nil {
				return nil, err
			}
			s.Env = env
		case "upload-artifact":
			fields, err := stringMap(val, subject+" upload-artifact")
			if err != nil {
				return nil, err
			}
			s.Upload = &config.ArtifactDecl{Name: fields["name"], Path: fields["path"]}
		case "download-artifact":
			fields, err := stringMap(val, subject+" download-artifact")
			if err != nil {
				return nil, err
			}
			s.Download = &config.DownloadDecl{Prefix: fields["prefix"], Dir: fields["dir"]}
		default:
			return nil, config.NewConfigError(subject, "unknown field %q", key.Value)
		}
	}
	return s, nil
}
