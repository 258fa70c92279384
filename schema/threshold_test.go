package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		input   string
		terms   []ComparisonExpr
		joiners []string
		letters string
	}{
		{
			input:   ">=5",
			terms:   []ComparisonExpr{{Op: CompGE, Operand: 5, OperandText: "5", IsNumeric: true}},
			letters: "ge5",
		},
		{
			input:   "gt0&&lt10.5",
			terms:   []ComparisonExpr{{Op: CompGT, OperandText: "0", IsNumeric: true}, {Op: CompLT, Operand: 10.5, OperandText: "10.5", IsNumeric: true}},
			joiners: []string{"&&"},
			letters: "gt0&&lt10.5",
		},
		{
			input:   "<273||>=300",
			terms:   []ComparisonExpr{{Op: CompLT, Operand: 273, OperandText: "273", IsNumeric: true}, {Op: CompGE, Operand: 300, OperandText: "300", IsNumeric: true}},
			joiners: []string{"||"},
			letters: "lt273||ge300",
		},
		{
			input:   "==SFP50",
			terms:   []ComparisonExpr{{Op: CompEQ, OperandText: "SFP50"}},
			letters: "eqSFP50",
		},
		{
			input:   "NA",
			terms:   []ComparisonExpr{{Op: CompNA}},
			letters: "NA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			th, err := ParseThreshold(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, th.String())
			assert.Equal(t, tt.terms, th.Terms)
			assert.Equal(t, tt.joiners, th.Joiners)
			assert.Equal(t, tt.letters, th.LetterFormat())
		})
	}
}

func TestParseThreshold_Errors(t *testing.T) {
	for _, input := range []string{"5", "gt", ">=abc", "approx5", "gt1&&", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseThreshold(input)
			require.Error(t, err)
			code, _ := CodeOf(err)
			assert.Equal(t, ErrCodeInvalidThreshold, code)
			assert.True(t, errors.Is(err, ErrConfigFormat))
		})
	}
}

func TestParseThresholds(t *testing.T) {
	ths, err := ParseThresholds([]string{"gt0", "le5"})
	require.NoError(t, err)
	require.Len(t, ths, 2)
	assert.Equal(t, CompLE, ths[1].Terms[0].Op)

	_, err = ParseThresholds([]string{"gt0", "bogus"})
	assert.Error(t, err)
}

func TestComparator(t *testing.T) {
	for _, op := range []Comparator{CompGT, CompGE, CompEQ, CompNE, CompLT, CompLE, CompNA} {
		bySymbol, ok := ParseComparator(op.Symbol())
		require.True(t, ok)
		assert.Equal(t, op, bySymbol)

		byLetter, ok := ParseComparator(op.Letter())
		require.True(t, ok)
		assert.Equal(t, op, byLetter)
	}

	_, ok := ParseComparator("=>")
	assert.False(t, ok)

	var c Comparator
	require.NoError(t, c.UnmarshalText([]byte("ne")))
	assert.Equal(t, "!=", c.String())
	assert.Error(t, c.UnmarshalText([]byte("approx")))
}

func TestThresholdJSON(t *testing.T) {
	spec := FieldSpec{Name: "TMP", Thresholds: []Threshold{mustThreshold(t, "gt0||lt5")}}
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"thresholds":["gt0||lt5"]`)

	var out FieldSpec
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, spec.Thresholds, out.Thresholds)
	assert.Equal(t, []string{"gt0||lt5"}, out.ThresholdStrings())
}

func mustThreshold(t *testing.T, text string) Threshold {
	t.Helper()
	th, err := ParseThreshold(text)
	require.NoError(t, err)
	return th
}
