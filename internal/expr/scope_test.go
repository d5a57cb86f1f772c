package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	s := NewScope()
	s.SetMatrix(map[string]string{"db": "postgres", "python": "3.12"})
	s.SetEnv(map[string]string{"HOME": "/home/ci"})

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{"plain string passes through", "make test", "make test"},
		{"matrix interpolation", "make test DB=${matrix.db}", "make test DB=postgres"},
		{"multiple interpolations", "${matrix.python}-${matrix.db}", "3.12-postgres"},
		{"env interpolation", "ls ${env.HOME}", "ls /home/ci"},
		{"empty string", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.RenderTemplate(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRenderTemplate_Errors(t *testing.T) {
	s := NewScope()

	t.Run("unknown axis", func(t *testing.T) {
		_, err := s.RenderTemplate("x=${matrix.nope}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "evaluating template")
	})

	t.Run("unparseable template", func(t *testing.T) {
		_, err := s.RenderTemplate("x=${matrix.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing template")
	})
}

func TestEvalBool_OutcomeFlags(t *testing.T) {
	s := NewScope()

	check := func(t *testing.T, src string, want bool) {
		t.Helper()
		got, err := s.EvalBool(src)
		require.NoError(t, err)
		assert.Equal(t, want, got, "predicate %q", src)
	}

	t.Run("clean instance", func(t *testing.T) {
		check(t, "success", true)
		check(t, "failure", false)
		check(t, "cancelled", false)
		check(t, "always", true)
	})

	t.Run("after a hard failure", func(t *testing.T) {
		s.SetOutcome(true, false)
		check(t, "success", false)
		check(t, "failure", true)
		check(t, "always", true)
	})

	t.Run("after cancellation", func(t *testing.T) {
		s.SetOutcome(true, true)
		check(t, "cancelled", true)
		check(t, "success || cancelled", true)
	})

	t.Run("matrix comparison", func(t *testing.T) {
		s.SetMatrix(map[string]string{"db": "sqlite"})
		check(t, `matrix.db == "sqlite"`, true)
		check(t, `matrix.db == "postgres"`, false)
	})
}

func TestEvalBool_Errors(t *testing.T) {
	s := NewScope()

	_, err := s.EvalBool("not-a-(predicate")
	require.Error(t, err)

	_, err = s.EvalBool(`"just a string"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not produce a boolean")
}
