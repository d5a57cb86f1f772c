// Package hcl loads workflow definitions written in HCL and translates
// them into the format-agnostic config model.
//
// Command templates, env values and step predicates are carried to the
// model as raw source text rather than evaluated at load time: their
// variables (matrix.*, outcome flags) only exist once an instance runs, so
// evaluation belongs to the executor's scope.
package hcl
