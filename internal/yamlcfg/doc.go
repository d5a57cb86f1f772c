// Package yamlcfg loads workflow definitions written in YAML and translates
// them into the format-agnostic config model.
//
// Decoding walks the yaml.Node tree instead of unmarshalling into structs:
// job and matrix axis declaration order is significant, and Go maps would
// lose it.
package yamlcfg
