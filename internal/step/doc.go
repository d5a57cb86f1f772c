// Package step executes the individual steps of a job instance.
//
// Steps dispatch through a small registry keyed by action kind, mirroring
// how runners are registered for execution elsewhere in the engine's
// lineage. Three actions are built in:
//
//   - run:               a shell command (sh -c), the exit-code contract
//   - upload-artifact:   register a file in the run's artifact store
//   - download-artifact: materialize every artifact matching a name prefix
//
// The engine does not interpret exit codes beyond zero/non-zero.
package step
