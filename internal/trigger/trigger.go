// Package trigger decides whether an incoming event admits a workflow run.
package trigger

import "slices"

// Event describes the occurrence a run submission was triggered by.
type Event struct {
	// Type is the event family, e.g. "push" or "pull_request".
	Type string
	// Action qualifies the event within its family, e.g. "opened". Event
	// families without sub-actions leave it empty.
	Action string
}

// pullRequestActions are the only pull_request sub-actions that start a
// run. Label changes, review events and the like are ignored.
var pullRequestActions = []string{"opened", "synchronize", "reopened"}

// Admit reports whether the event matches the workflow's `on` filter.
// An empty filter admits every event.
func Admit(on []string, ev Event) bool {
	if len(on) > 0 && !slices.Contains(on, ev.Type) {
		return false
	}
	if ev.Type == "pull_request" && ev.Action != "" {
		return slices.Contains(pullRequestActions, ev.Action)
	}
	return true
}
