// Package config defines the format-agnostic representation of a workflow
// definition, plus the Loader interface implemented by the format-specific
// parsers (HCL and YAML).
//
// The model is the single contract between the loaders and the rest of the
// engine: the DAG builder, the executor, and the step actions all operate on
// these types and never see the source document. A model is immutable once a
// run has been submitted.
package config
