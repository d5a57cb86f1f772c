package config

import "fmt"

// Validate checks the structural integrity of a loaded model. Format-level
// problems (unparseable documents) are the loaders' business; everything
// both loaders could get wrong in the same way is checked here.
func (m *Model) Validate() error {
	if m.Workflow == nil {
		return NewConfigError("", "definition contains no workflow")
	}
	if len(m.Workflow.Jobs) == 0 {
		return NewConfigError("workflow "+m.Workflow.Name, "no jobs declared")
	}

	seen := make(map[string]struct{}, len(m.Workflow.Jobs))
	for _, job := range m.Workflow.Jobs {
		if job.Name == "" {
			return NewConfigError("", "job with empty name")
		}
		if _, dup := seen[job.Name]; dup {
			return NewConfigError("job "+job.Name, "declared more than once")
		}
		seen[job.Name] = struct{}{}

		if len(job.Steps) == 0 {
			return NewConfigError("job "+job.Name, "no steps declared")
		}
		for _, need := range job.Needs {
			if need == job.Name {
				return NewConfigError("job "+job.Name, "needs itself")
			}
		}
		for i, step := range job.Steps {
			if err := validateStep(job.Name, i, step); err != nil {
				return err
			}
		}
		if job.Matrix != nil {
			if err := validateMatrix(job.Name, job.Matrix); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStep(jobName string, idx int, s *Step) error {
	actions := 0
	if s.Run != "" {
		actions++
	}
	if s.Upload != nil {
		actions++
	}
	if s.Download != nil {
		actions++
	}
	subject := stepSubject(jobName, idx, s)
	if actions == 0 {
		return NewConfigError(subject, "step declares no action")
	}
	if actions > 1 {
		return NewConfigError(subject, "step declares more than one action")
	}
	if s.Upload != nil && (s.Upload.Name == "" || s.Upload.Path == "") {
		return NewConfigError(subject, "artifact upload requires name and path")
	}
	if s.Download != nil && s.Download.Prefix == "" {
		return NewConfigError(subject, "artifact download requires a name prefix")
	}
	return nil
}

func validateMatrix(jobName string, m *Matrix) error {
	names := make(map[string]struct{}, len(m.Axes))
	for _, axis := range m.Axes {
		if axis.Name == "" {
			return NewConfigError("job "+jobName, "matrix axis with empty name")
		}
		if len(axis.Values) == 0 {
			return NewConfigError("job "+jobName, "matrix axis %q has no values", axis.Name)
		}
		if _, dup := names[axis.Name]; dup {
			return NewConfigError("job "+jobName, "duplicate matrix axis %q", axis.Name)
		}
		names[axis.Name] = struct{}{}
	}
	for _, excl := range m.Exclude {
		for name := range excl {
			if _, ok := names[name]; !ok {
				return NewConfigError("job "+jobName, "exclude references unknown axis %q", name)
			}
		}
	}
	for _, sf := range m.SoftFail {
		for name := range sf {
			if _, ok := names[name]; !ok {
				return NewConfigError("job "+jobName, "soft_fail references unknown axis %q", name)
			}
		}
	}
	return nil
}

func stepSubject(jobName string, idx int, s *Step) string {
	if s.Name != "" {
		return "step " + jobName + "." + s.Name
	}
	return fmt.Sprintf("step %s[%d]", jobName, idx)
}
