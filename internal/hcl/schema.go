package hcl

import "github.com/hashicorp/hcl/v2"

// fileSchema is the gohcl decoding target for one definition file.
type fileSchema struct {
	Workflow *workflowBlock `hcl:"workflow,block"`
	Jobs     []*jobBlock    `hcl:"job,block"`
}

// workflowBlock is the `workflow { ... }` header.
type workflowBlock struct {
	Name string         `hcl:"name,optional"`
	On   []string       `hcl:"on,optional"`
	Env  hcl.Expression `hcl:"env,optional"`
}

// jobBlock is one `job "name" { ... }` definition.
type jobBlock struct {
	Name    string         `hcl:"name,label"`
	Needs   []string       `hcl:"needs,optional"`
	Timeout string         `hcl:"timeout,optional"`
	Env     hcl.Expression `hcl:"env,optional"`
	Matrix  *matrixBlock   `hcl:"matrix,block"`
	Steps   []*stepBlock   `hcl:"step,block"`
}

// matrixBlock declares axes plus exclusion and soft-fail filters. The
// filters hold only static values, so they are evaluated during loading.
type matrixBlock struct {
	Axes     []*axisBlock   `hcl:"axis,block"`
	Exclude  hcl.Expression `hcl:"exclude,optional"`
	SoftFail hcl.Expression `hcl:"soft_fail,optional"`
}

// axisBlock is one `axis "name" { values = [...] }` dimension.
type axisBlock struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// stepBlock is one `step "name" { ... }` unit. Run, If and Env stay
// unevaluated; see the package comment.
type stepBlock struct {
	Name            string         `hcl:"name,label"`
	Run             hcl.Expression `hcl:"run,optional"`
	If              hcl.Expression `hcl:"if,optional"`
	ContinueOnError bool           `hcl:"continue_on_error,optional"`
	Env             hcl.Expression `hcl:"env,optional"`
	Artifact        *artifactBlock `hcl:"artifact,block"`
	Download        *downloadBlock `hcl:"download,block"`
}

// artifactBlock declares an upload.
type artifactBlock struct {
	Name hcl.Expression `hcl:"name"`
	Path string         `hcl:"path"`
}

// downloadBlock declares a prefix aggregation download.
type downloadBlock struct {
	Prefix hcl.Expression `hcl:"prefix"`
	Dir    string         `hcl:"dir,optional"`
}
