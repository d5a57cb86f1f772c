package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdmit(t *testing.T) {
	testCases := []struct {
		name string
		on   []string
		ev   Event
		want bool
	}{
		{
			name: "listed event type admits",
			on:   []string{"push", "pull_request"},
			ev:   Event{Type: "push"},
			want: true,
		},
		{
			name: "unlisted event type is ignored",
			on:   []string{"push"},
			ev:   Event{Type: "schedule"},
			want: false,
		},
		{
			name: "empty filter admits everything",
			on:   nil,
			ev:   Event{Type: "workflow_dispatch"},
			want: true,
		},
		{
			name: "pull_request opened admits",
			on:   []string{"pull_request"},
			ev:   Event{Type: "pull_request", Action: "opened"},
			want: true,
		},
		{
			name: "pull_request synchronize admits",
			on:   []string{"pull_request"},
			ev:   Event{Type: "pull_request", Action: "synchronize"},
			want: true,
		},
		{
			name: "pull_request reopened admits",
			on:   []string{"pull_request"},
			ev:   Event{Type: "pull_request", Action: "reopened"},
			want: true,
		},
		{
			name: "pull_request labeled is ignored",
			on:   []string{"pull_request"},
			ev:   Event{Type: "pull_request", Action: "labeled"},
			want: false,
		},
		{
			name: "pull_request without action admits",
			on:   []string{"pull_request"},
			ev:   Event{Type: "pull_request"},
			want: true,
		},
		{
			name: "pull_request action check applies with empty filter too",
			on:   nil,
			ev:   Event{Type: "pull_request", Action: "closed"},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Admit(tc.on, tc.ev))
		})
	}
}
