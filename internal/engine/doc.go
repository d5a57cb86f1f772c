// Package engine owns the run lifecycle: submitting a loaded workflow
// against a trigger event, tracking the run to completion, reporting its
// status and discarding it afterwards.
//
// Runs execute on detached contexts. Cancelling the submission context
// (an HTTP request, say) does not cancel the run; only Cancel does.
package engine
