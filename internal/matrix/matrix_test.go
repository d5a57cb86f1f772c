package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/config"
)

func ciMatrix() *config.Matrix {
	return &config.Matrix{
		Axes: []config.Axis{
			{Name: "python", Values: []string{"3.8"}},
			{Name: "django", Values: []string{"3.2", "4.2"}},
			{Name: "db", Values: []string{"mysql5.7", "mysql8.0"}},
		},
		Exclude: []map[string]string{
			{"django": "4.2", "db": "mysql5.7"},
		},
	}
}

func TestExpand_NilMatrixYieldsSingleton(t *testing.T) {
	for _, m := range []*config.Matrix{nil, {}} {
		got, err := Expand(m)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Empty(t, got[0])
	}
}

func TestExpand_ExclusionFilter(t *testing.T) {
	got, err := Expand(ciMatrix())
	require.NoError(t, err)

	want := []Assignment{
		{"python": "3.8", "django": "3.2", "db": "mysql5.7"},
		{"python": "3.8", "django": "3.2", "db": "mysql8.0"},
		{"python": "3.8", "django": "4.2", "db": "mysql8.0"},
	}
	assert.Equal(t, want, got)
}

func TestExpand_CountMatchesProductMinusExclusions(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "a", Values: []string{"1", "2", "3"}},
			{Name: "b", Values: []string{"x", "y"}},
		},
		Exclude: []map[string]string{
			{"a": "2"}, // partial: removes both (2,x) and (2,y)
		},
	}
	got, err := Expand(m)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	// No duplicates.
	unique := make(map[string]struct{})
	for _, a := range got {
		unique[Label(m, a)] = struct{}{}
	}
	assert.Len(t, unique, len(got))
}

func TestExpand_Deterministic(t *testing.T) {
	first, err := Expand(ciMatrix())
	require.NoError(t, err)
	second, err := Expand(ciMatrix())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExpand_MultiRadixOrder(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "hi", Values: []string{"a", "b"}},
			{Name: "lo", Values: []string{"1", "2"}},
		},
	}
	got, err := Expand(m)
	require.NoError(t, err)

	var labels []string
	for _, a := range got {
		labels = append(labels, Label(m, a))
	}
	// The last declared axis varies fastest.
	assert.Equal(t, []string{"hi=a,lo=1", "hi=a,lo=2", "hi=b,lo=1", "hi=b,lo=2"}, labels)
}

func TestExpand_DuplicateAxisIsConfigError(t *testing.T) {
	m := &config.Matrix{
		Axes: []config.Axis{
			{Name: "db", Values: []string{"mysql5.7"}},
			{Name: "db", Values: []string{"mysql8.0"}},
		},
	}
	_, err := Expand(m)
	require.Error(t, err)
	var cfgErr *config.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMatches(t *testing.T) {
	a := Assignment{"django": "4.2", "db": "mysql5.7"}

	assert.True(t, Matches(map[string]string{"db": "mysql5.7"}, a))
	assert.True(t, Matches(map[string]string{"django": "4.2", "db": "mysql5.7"}, a))
	assert.False(t, Matches(map[string]string{"db": "mysql8.0"}, a))
	assert.False(t, Matches(map[string]string{"python": "3.8"}, a))
	// An empty partial matches nothing rather than everything.
	assert.False(t, Matches(map[string]string{}, a))
}

func TestSoftFail(t *testing.T) {
	m := ciMatrix()
	m.SoftFail = []map[string]string{{"db": "mysql8.0"}}

	assert.True(t, SoftFail(m, Assignment{"python": "3.8", "django": "3.2", "db": "mysql8.0"}))
	assert.False(t, SoftFail(m, Assignment{"python": "3.8", "django": "3.2", "db": "mysql5.7"}))
	assert.False(t, SoftFail(nil, Assignment{"db": "mysql8.0"}))
}
