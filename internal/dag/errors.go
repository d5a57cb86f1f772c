package dag

import "fmt"

// GraphError reports an invalid dependency graph: a `needs` reference to a
// job that does not exist, or a dependency cycle. It is fatal and is
// reported before any instance executes.
type GraphError struct {
	Reason string
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	return "invalid job graph: " + e.Reason
}

// newGraphError builds a GraphError.
func newGraphError(format string, args ...any) *GraphError {
	return &GraphError{Reason: fmt.Sprintf(format, args...)}
}
