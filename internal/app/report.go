package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/vk/flowgrid/internal/engine"
)

// stateMarkers render instance states in the report.
var stateMarkers = map[string]string{
	"succeeded":   "✅",
	"soft-failed": "⚠️",
	"failed":      "❌",
	"skipped":     "⏭️",
}

// renderReport writes the human-readable run summary to the app's output.
func (a *App) renderReport(r *engine.Report) {
	var b strings.Builder

	fmt.Fprintf(&b, "\nRun %s (%s) finished: %s in %s\n", r.RunID, r.Workflow, r.Status, r.Duration.Round(time.Millisecond))
	for _, inst := range r.Instances {
		marker, ok := stateMarkers[inst.State]
		if !ok {
			marker = "•"
		}
		fmt.Fprintf(&b, "  %s %s\n", marker, inst.ID)
		if inst.Error != "" {
			fmt.Fprintf(&b, "      %s\n", inst.Error)
		}
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&b, "Warnings: %d soft-failed instance(s)\n", r.Warnings)
	}
	if len(r.Artifacts) > 0 {
		fmt.Fprintf(&b, "Artifacts: %s\n", strings.Join(r.Artifacts, ", "))
	}

	fmt.Fprint(a.outW, b.String())
}
