// Package artifact implements the run-scoped artifact namespace: named
// opaque blobs uploaded by job instances and aggregated by downstream jobs.
//
// The store is the only mutable state shared across concurrently running
// instances, so every implementation must tolerate concurrent writers.
// Names may collide across instances; the contract is last-write-wins per
// exact name. GetAll supports the "download everything with this prefix"
// aggregation pattern.
//
// Two implementations exist: an in-memory store used for a single run on a
// single machine, and a MinIO/S3-backed store for setups where artifacts
// must outlive the engine process.
package artifact
