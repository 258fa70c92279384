package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/metplus/internal/confstore"
	"github.com/huangsam/metplus/schema"
)

var refTime = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

func TestResolveLeadSequence(t *testing.T) {
	validTick := &schema.TimeInfo{Valid: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	tests := []struct {
		name     string
		values   map[string]string
		opts     LeadOptions
		expected []string
	}{
		{
			name:     "nothing set",
			values:   map[string]string{},
			expected: []string{"0H"},
		},
		{
			name:     "lead seq hours",
			values:   map[string]string{"LEAD_SEQ": "0, 6, 12"},
			expected: []string{"0H", "6H", "12H"},
		},
		{
			name:     "lead seq range",
			values:   map[string]string{"LEAD_SEQ": "begin_end_incr(0,12,6)"},
			expected: []string{"0H", "6H", "12H"},
		},
		{
			name:     "lead seq mixed units",
			values:   map[string]string{"LEAD_SEQ": "30M, 1d, 90S"},
			expected: []string{"30M", "24H", "90S"},
		},
		{
			name:     "min and max filter",
			values:   map[string]string{"LEAD_SEQ": "0,3,6,9,12", "LEAD_SEQ_MIN": "3", "LEAD_SEQ_MAX": "9"},
			expected: []string{"3H", "6H", "9H"},
		},
		{
			name:     "max beyond time.Duration range",
			values:   map[string]string{"LEAD_SEQ": "0, 6, 12", "LEAD_SEQ_MAX": "99999999"},
			expected: []string{"0H", "6H", "12H"},
		},
		{
			name:     "filtered to empty",
			values:   map[string]string{"LEAD_SEQ": "24,48", "LEAD_SEQ_MAX": "12"},
			expected: []string{"0H"},
		},
		{
			name:     "calendar leads compared at reference",
			values:   map[string]string{"LEAD_SEQ": "1m,29d,30d", "LEAD_SEQ_MAX": "29d"},
			opts:     LeadOptions{Reference: refTime},
			expected: []string{"1m", "696H"},
		},
		{
			name:     "init seq",
			values:   map[string]string{"INIT_SEQ": "0,12", "LEAD_SEQ_MAX": "36"},
			opts:     LeadOptions{Context: validTick},
			expected: []string{"0H", "12H", "24H", "36H"},
		},
		{
			name:     "init seq wraps past midnight",
			values:   map[string]string{"INIT_SEQ": "18", "LEAD_SEQ_MAX": "24"},
			opts:     LeadOptions{Context: validTick},
			expected: []string{"18H"},
		},
		{
			name:     "init seq with min",
			values:   map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_MIN": "24", "LEAD_SEQ_MAX": "60"},
			opts:     LeadOptions{Context: validTick},
			expected: []string{"36H", "60H"},
		},
		{
			name: "labeled groups are merged",
			values: map[string]string{
				"LEAD_SEQ_1": "0,6", "LEAD_SEQ_1_LABEL": "Day1",
				"LEAD_SEQ_2": "6,12", "LEAD_SEQ_2_LABEL": "Day2",
			},
			expected: []string{"0H", "6H", "12H"},
		},
		{
			name: "equal leads in other units are merged",
			values: map[string]string{
				"LEAD_SEQ_1": "24", "LEAD_SEQ_1_LABEL": "a",
				"LEAD_SEQ_2": "1d,2d", "LEAD_SEQ_2_LABEL": "b",
			},
			expected: []string{"24H", "48H"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := ResolveLeadSequence(confstore.NewConfig(tt.values), tt.opts)
			require.NoError(t, err)
			assert.False(t, seq.Wildcard)
			assert.Equal(t, tt.expected, seq.Strings())
		})
	}
}

func TestResolveLeadSequence_Wildcard(t *testing.T) {
	seq, err := ResolveLeadSequence(confstore.NewConfig(nil), LeadOptions{Wildcard: true})
	require.NoError(t, err)
	assert.True(t, seq.Wildcard)
	assert.Empty(t, seq.Leads)
	assert.Equal(t, []string{"*"}, seq.Strings())

	// a configured sequence wins over the wildcard
	seq, err = ResolveLeadSequence(confstore.NewConfig(map[string]string{"LEAD_SEQ": "3"}), LeadOptions{Wildcard: true})
	require.NoError(t, err)
	assert.False(t, seq.Wildcard)
	assert.Equal(t, []string{"3H"}, seq.Strings())
}

func TestResolveLeadSequence_Errors(t *testing.T) {
	initTick := &schema.TimeInfo{Init: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	validTick := &schema.TimeInfo{Valid: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	tests := []struct {
		name   string
		values map[string]string
		opts   LeadOptions
		code   schema.ErrorCode
		kind   error
	}{
		{
			name:   "lead seq with init seq",
			values: map[string]string{"LEAD_SEQ": "0", "INIT_SEQ": "0", "LEAD_SEQ_MAX": "24"},
			opts:   LeadOptions{Context: validTick},
			code:   schema.ErrCodeConflictingLeadSpec,
			kind:   schema.ErrConflictingSpecification,
		},
		{
			name:   "lead seq with groups",
			values: map[string]string{"LEAD_SEQ": "0", "LEAD_SEQ_1": "6", "LEAD_SEQ_1_LABEL": "a"},
			code:   schema.ErrCodeConflictingLeadSpec,
			kind:   schema.ErrConflictingSpecification,
		},
		{
			name:   "init seq with groups",
			values: map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_1": "6", "LEAD_SEQ_1_LABEL": "a"},
			code:   schema.ErrCodeConflictingLeadSpec,
			kind:   schema.ErrConflictingSpecification,
		},
		{
			name:   "init seq without context",
			values: map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_MAX": "24"},
			code:   schema.ErrCodeMissingValidContext,
			kind:   schema.ErrMissingRequiredBound,
		},
		{
			name:   "init seq looping by init",
			values: map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_MAX": "24"},
			opts:   LeadOptions{Context: initTick},
			code:   schema.ErrCodeMissingValidContext,
			kind:   schema.ErrMissingRequiredBound,
		},
		{
			name:   "init seq without max",
			values: map[string]string{"INIT_SEQ": "0"},
			opts:   LeadOptions{Context: validTick},
			code:   schema.ErrCodeMissingLeadMax,
			kind:   schema.ErrMissingRequiredBound,
		},
		{
			name:   "init seq with calendar max",
			values: map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_MAX": "1m"},
			opts:   LeadOptions{Context: validTick},
			code:   schema.ErrCodeInvalidDuration,
			kind:   schema.ErrConfigFormat,
		},
		{
			name:   "group without label",
			values: map[string]string{"LEAD_SEQ_1": "0,6"},
			code:   schema.ErrCodeMissingGroupLabel,
			kind:   schema.ErrConflictingSpecification,
		},
		{
			name:   "bad lead item",
			values: map[string]string{"LEAD_SEQ": "0,six"},
			code:   schema.ErrCodeInvalidLeadItem,
			kind:   schema.ErrConfigFormat,
		},
		{
			name:   "bad init seq item",
			values: map[string]string{"INIT_SEQ": "0,x"},
			code:   schema.ErrCodeInvalidListItem,
			kind:   schema.ErrConfigFormat,
		},
		{
			name:   "bad lead max",
			values: map[string]string{"LEAD_SEQ": "0", "LEAD_SEQ_MAX": "soon"},
			code:   schema.ErrCodeInvalidDuration,
			kind:   schema.ErrConfigFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveLeadSequence(confstore.NewConfig(tt.values), tt.opts)
			require.Error(t, err)
			code, ok := schema.CodeOf(err)
			require.True(t, ok, "error should carry a code: %v", err)
			assert.Equal(t, tt.code, code)
			assert.True(t, errors.Is(err, tt.kind), "error %v should be %v", err, tt.kind)
		})
	}
}

func TestResolveLeadGroups(t *testing.T) {
	store := confstore.NewConfig(map[string]string{
		"LEAD_SEQ_10":       "48",
		"LEAD_SEQ_10_LABEL": "Day3",
		"LEAD_SEQ_2":        "begin_end_incr(0,12,12)",
		"LEAD_SEQ_2_LABEL":  "Day1",
	})

	groups, err := ResolveLeadGroups(store)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, 2, groups[0].Index)
	assert.Equal(t, "Day1", groups[0].Label)
	assert.Equal(t, []schema.RelativeDuration{schema.HoursDuration(0), schema.HoursDuration(12)}, groups[0].Leads)
	assert.Equal(t, 10, groups[1].Index)
	assert.Equal(t, "Day3", groups[1].Label)
}

func TestExpandInitSeq(t *testing.T) {
	bounds := leadBounds{min: schema.HoursDuration(0), max: schema.HoursDuration(48)}
	valid := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	leads, err := expandInitSeq([]int{0, 12}, valid, bounds)
	require.NoError(t, err)
	assert.Equal(t, []schema.RelativeDuration{
		schema.HoursDuration(6), schema.HoursDuration(18),
		schema.HoursDuration(30), schema.HoursDuration(42),
	}, leads)
}
