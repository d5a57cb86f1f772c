package artifact

import (
	"context"
	"time"
)

// Entry is one stored artifact, tagged with the instance that produced it.
type Entry struct {
	Name       string
	InstanceID string
	Data       []byte
	StoredAt   time.Time
}

// Store is the artifact namespace for one workflow run.
type Store interface {
	// Put stores data under name. Storing the same name twice overwrites;
	// the last writer wins.
	Put(ctx context.Context, name, instanceID string, data []byte) error

	// GetAll returns every entry whose name starts with prefix, sorted by
	// name. An empty prefix returns everything.
	GetAll(ctx context.Context, prefix string) ([]Entry, error)

	// List returns the stored names, sorted.
	List(ctx context.Context) ([]string, error)

	// Clear discards the run's artifacts. Called when the run is discarded;
	// implementations with an external retention policy may no-op.
	Clear(ctx context.Context) error
}
