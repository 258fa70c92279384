package contract

import (
	"errors"
	"testing"

	"github.com/huangsam/metplus/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expand   bool
		expected []string
	}{
		{"empty", "", true, []string{}},
		{"only commas", " , ,", true, []string{}},
		{"simple", "a, b ,c", true, []string{"a", "b", "c"}},
		{"trailing comma", "a,b,", true, []string{"a", "b"}},
		{"range", "begin_end_incr(0,12,6)", true, []string{"0", "6", "12"}},
		{"range with padding", "begin_end_incr(0,12,6,2)", true, []string{"00", "06", "12"}},
		{"range with glued text", "ab_begin_end_incr(0,6,3)h", true, []string{"ab_0h", "ab_3h", "ab_6h"}},
		{"descending range", "begin_end_incr(6,0,-3)", true, []string{"6", "3", "0"}},
		{"range among items", "a, begin_end_incr(1,3,1), fn(x,y)", true, []string{"a", "1", "2", "3", "fn(x,y)"}},
		{"zero step is kept", "begin_end_incr(1,3,0)", true, []string{"begin_end_incr(1,3,0)"}},
		{"no expansion", "begin_end_incr(1,3,1), b", false, []string{"begin_end_incr(1,3,1)", "b"}},
		{"quoted items", `"%m:3,4", "%d:30"`, true, []string{"%m:3,4", "%d:30"}},
		{"square brackets", "[a,b], c", true, []string{"[a,b]", "c"}},
		{"nested brackets", "fn(x,[1,2]),y", true, []string{"fn(x,[1,2])", "y"}},
		{"close then reopen", "a)(b,c),d", true, []string{"a)(b,c)", "d"}},
		{"bracket closed by a bare item", "fn(a,),b", true, []string{"fn(a,)", "b"}},
		{"unclosed bracket keeps the rest", "x,fn(a,b", true, []string{"x", "fn(a,b"}},
		{"escaped quotes", `\"x\",y`, true, []string{`"x"`, "y"}},
		{"escaped comma", `a\,b,c`, true, []string{"a,b", "c"}},
		{"escaped backslash", `a\\b`, true, []string{`a\b`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseList(tt.input, tt.expand))
		})
	}
}

func TestParseIntList(t *testing.T) {
	values, err := ParseIntList("1, begin_end_incr(3,5,1), -2")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 5, -2}, values)

	_, err = ParseIntList("1, x")
	require.Error(t, err)
	code, ok := schema.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeInvalidListItem, code)
	assert.True(t, errors.Is(err, schema.ErrConfigFormat))
}

func TestExpandBeginEndIncr(t *testing.T) {
	assert.Equal(t, "0,3,6,x", ExpandBeginEndIncr("begin_end_incr(0,6,3),x"))
	assert.Equal(t, "-03,-02", ExpandBeginEndIncr("begin_end_incr(-3,-2,1,3)"))
	assert.Equal(t, "no ranges here", ExpandBeginEndIncr("no ranges here"))
}

func TestExpandIntString(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 5}, ExpandIntString("1-3, 5, x"))
	assert.Empty(t, ExpandIntString(""))
}
