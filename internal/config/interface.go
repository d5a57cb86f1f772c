package config

import "context"

// Loader is the interface for a format-specific workflow definition loader.
type Loader interface {
	// Load reads one or more definition files, translates them into the
	// format-agnostic model and validates the result. Multiple files are
	// merged: the first workflow block wins, jobs accumulate in file order.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
