package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // single file or a directory of definitions

	// EventType and EventAction describe the trigger event the run is
	// submitted against.
	EventType   string
	EventAction string

	LogFormat string
	LogLevel  string
	// ListenAddr enables the control API server; empty disables it.
	ListenAddr string
	Workers    int
	// WorkDir is where step commands execute. Empty means the process's
	// current directory.
	WorkDir string

	// MinIO-backed artifact storage; an empty endpoint keeps artifacts in
	// memory for the lifetime of the run.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioRetain    bool
}

// NewConfig validates the raw configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.EventType == "" {
		return nil, errors.New("EventType is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
