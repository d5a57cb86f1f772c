// Package matrix expands a job's matrix declaration into the concrete list
// of assignments, one per job instance.
//
// Expansion is deterministic: axes count like digits of a multi-radix
// number, the first declared axis being the most significant. The same
// declaration always yields the same assignments in the same order.
package matrix

import (
	"strings"

	"github.com/vk/flowgrid/internal/config"
)

// Assignment maps axis names to the concrete value picked for one instance.
type Assignment map[string]string

// Expand computes the Cartesian product of the matrix axes and filters out
// every combination matching an exclude entry. A nil matrix, or one with no
// axes, yields exactly one empty assignment (the singleton case).
func Expand(m *config.Matrix) ([]Assignment, error) {
	if m == nil || len(m.Axes) == 0 {
		return []Assignment{{}}, nil
	}

	seen := make(map[string]struct{}, len(m.Axes))
	for _, axis := range m.Axes {
		if _, dup := seen[axis.Name]; dup {
			return nil, config.NewConfigError("matrix", "duplicate axis %q", axis.Name)
		}
		seen[axis.Name] = struct{}{}
	}

	total := 1
	for _, axis := range m.Axes {
		total *= len(axis.Values)
	}

	out := make([]Assignment, 0, total)
	indices := make([]int, len(m.Axes))
	for {
		candidate := make(Assignment, len(m.Axes))
		for i, axis := range m.Axes {
			candidate[axis.Name] = axis.Values[indices[i]]
		}
		if !excluded(m, candidate) {
			out = append(out, candidate)
		}

		// Advance the least significant axis, carrying leftwards.
		i := len(indices) - 1
		for i >= 0 {
			indices[i]++
			if indices[i] < len(m.Axes[i].Values) {
				break
			}
			indices[i] = 0
			i--
		}
		if i < 0 {
			return out, nil
		}
	}
}

// Matches reports whether the assignment is a superset of the partial
// assignment: every axis the partial names must be present with the exact
// same value.
func Matches(partial map[string]string, a Assignment) bool {
	if len(partial) == 0 {
		return false
	}
	for axis, want := range partial {
		if got, ok := a[axis]; !ok || got != want {
			return false
		}
	}
	return true
}

// SoftFail reports whether the assignment matches any of the matrix's
// soft-fail entries.
func SoftFail(m *config.Matrix, a Assignment) bool {
	if m == nil {
		return false
	}
	for _, partial := range m.SoftFail {
		if Matches(partial, a) {
			return true
		}
	}
	return false
}

// Label renders the assignment in axis declaration order, e.g.
// "python=3.8,db=mysql8.0". Singleton assignments render empty.
func Label(m *config.Matrix, a Assignment) string {
	if m == nil || len(a) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.Axes))
	for _, axis := range m.Axes {
		if v, ok := a[axis.Name]; ok {
			parts = append(parts, axis.Name+"="+v)
		}
	}
	return strings.Join(parts, ",")
}

// excluded reports whether the candidate matches any exclude entry.
func excluded(m *config.Matrix, candidate Assignment) bool {
	for _, partial := range m.Exclude {
		if Matches(partial, candidate) {
			return true
		}
	}
	return false
}
