package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listeverything/finder/internal/filter"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		count     int
		op        filter.Comparison
		threshold int
		want      bool
	}{
		{"default is greater or equal", 3, "", 3, true},
		{"ge below", 2, filter.CompareGreaterOrEqual, 3, false},
		{"gt equal", 3, filter.CompareGreaterThan, 3, false},
		{"gt above", 4, filter.CompareGreaterThan, 3, true},
		{"lt", 0, filter.CompareLessThan, 1, true},
		{"lt equal", 1, filter.CompareLessThan, 1, false},
		{"le equal", 1, filter.CompareLessOrEqual, 1, true},
		{"eq zero", 0, filter.CompareEqual, 0, true},
		{"eq mismatch", 2, filter.CompareEqual, 0, false},
		{"unknown never holds", 5, "between", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compare(tt.count, tt.op, tt.threshold))
		})
	}
}

func TestParseComparison(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]filter.Comparison{
		"":          filter.CompareGreaterOrEqual,
		">":         filter.CompareGreaterThan,
		"less_than": filter.CompareLessThan,
		"<=":        filter.CompareLessOrEqual,
		"==":        filter.CompareEqual,
	} {
		got, err := ParseComparison(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseComparison("~")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	p, err := ParsePriority("critical")
	require.NoError(t, err)
	assert.Equal(t, filter.PriorityCritical, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, filter.PriorityMedium, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}
