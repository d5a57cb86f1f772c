package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/flowgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowGrid - A declarative, concurrency-first CI workflow runner.

Usage:
  flowgrid [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow definition file (.hcl, .yml, .yaml) or a directory
    containing definition files of one format.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	eventFlag := flagSet.String("event", "push", "Trigger event type, e.g. 'push' or 'pull_request'.")
	eventActionFlag := flagSet.String("event-action", "", "Trigger event sub-action, e.g. 'opened'.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the executor.")
	workDirFlag := flagSet.String("workdir", "", "Working directory for step commands. Defaults to the current directory.")
	listenFlag := flagSet.String("listen", "", "Address for the control API server, e.g. ':8080'. Empty disables it.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	minioEndpointFlag := flagSet.String("minio-endpoint", "", "MinIO/S3 endpoint (host:port) for artifact storage. Empty keeps artifacts in memory.")
	minioBucketFlag := flagSet.String("minio-bucket", "flowgrid-artifacts", "Bucket for artifact storage.")
	minioRegionFlag := flagSet.String("minio-region", "", "Region for artifact storage.")
	minioSSLFlag := flagSet.Bool("minio-ssl", false, "Use TLS when talking to the artifact store.")
	minioRetainFlag := flagSet.Bool("minio-retain", false, "Keep stored artifacts when a run is discarded.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath:   path,
		EventType:      *eventFlag,
		EventAction:    *eventActionFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		ListenAddr:     *listenFlag,
		Workers:        *workersFlag,
		WorkDir:        *workDirFlag,
		MinioEndpoint:  *minioEndpointFlag,
		MinioAccessKey: os.Getenv("FLOWGRID_MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("FLOWGRID_MINIO_SECRET_KEY"),
		MinioBucket:    *minioBucketFlag,
		MinioRegion:    *minioRegionFlag,
		MinioUseSSL:    *minioSSLFlag,
		MinioRetain:    *minioRetainFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
