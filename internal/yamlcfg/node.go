package yamlcfg

import (
	"iter"

	"github.com/vk/flowgrid/internal/config"
	"gopkg.in/yaml.v3"
)

// mappingPairs iterates the key/value nodes of a mapping in document order.
func mappingPairs(node *yaml.Node) iter.Seq2[*yaml.Node, *yaml.Node] {
	return func(yield func(*yaml.Node, *yaml.Node) bool) {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i], node.Content[i+1]) {
				return
			}
		}
	}
}

// stringList accepts either a single scalar or a sequence of scalars.
func stringList(node *yaml.Node, subject string) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, config.NewConfigError(subject, "list entries must be scalars")
			}
			out = append(out, item.Value)
		}
		return out, nil
	default:
		return nil, config.NewConfigError(subject, "must be a scalar or a list of scalars")
	}
}

// stringMap reads a mapping of scalar keys to scalar values.
func stringMap(node *yaml.Node, subject string) (map[string]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, config.NewConfigError(subject, "must be a mapping")
	}
	out := make(map[string]string, len(node.Content)/2)
	for key, val := range mappingPairs(node) {
		if val.Kind != yaml.ScalarNode {
			return nil, config.NewConfigError(subject, "value for %q must be a scalar", key.Value)
		}
		out[key.Value] = val.Value
	}
	return out, nil
}

// partialAssignments reads a list of partial axis→value mappings, as used
// by `exclude` and `soft-fail`.
func partialAssignments(node *yaml.Node, subject string) ([]map[string]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, config.NewConfigError(subject, "must be a list of mappings")
	}
	out := make([]map[string]string, 0, len(node.Content))
	for _, item := range node.Content {
		entry, err := stringMap(item, subject)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
