package contract

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/huangsam/metplus/schema"
)

var (
	commaSpaceRegex = regexp.MustCompile(`\s*,\s*`)

	// beginEndIncrFindRegex captures a begin_end_incr call together with the
	// non-comma text glued to either side of it.
	beginEndIncrFindRegex = regexp.MustCompile(`([^,]*begin_end_incr\(\s*-?\d*,-?\d*,-*\d*,?\d*\s*\)[^,]*)`)

	beginEndIncrEvalRegex = regexp.MustCompile(`^(.*)begin_end_incr\(\s*(-*\d*),(-*\d*),(-*\d*),?(\d*)\s*\)(.*)$`)
)

// ParseList splits a comma-separated configuration value into items.
// When expandRanges is set, begin_end_incr(start,end,step[,pad]) calls are
// expanded first. Quoted items are not split, and items that were split
// inside parentheses or square brackets are joined back together.
func ParseList(text string, expandRanges bool) []string {
	s := strings.TrimSpace(text)
	s = strings.Trim(s, ",")
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	s = commaSpaceRegex.ReplaceAllString(s, ",")

	if expandRanges {
		s = ExpandBeginEndIncr(s)
	}

	return repairBrackets(splitQuoted(s))
}

// ParseIntList parses a list of integers, expanding ranges.
func ParseIntList(text string) ([]int, error) {
	items := ParseList(text, true)
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			return nil, schema.WrapResolveError(schema.ErrCodeInvalidListItem, err, "invalid integer %q in list %q", item, text)
		}
		out = append(out, n)
	}
	return out, nil
}

// ExpandBeginEndIncr replaces every begin_end_incr(...) call in s with its
// comma-joined expansion. Prefix and suffix text glued to the call is
// repeated around each value, so "ab_begin_end_incr(0,6,3)h" becomes
// "ab_0h,ab_3h,ab_6h".
func ExpandBeginEndIncr(s string) string {
	return beginEndIncrFindRegex.ReplaceAllStringFunc(s, func(match string) string {
		values, ok := evaluateBeginEndIncr(match)
		if !ok {
			return match
		}
		return strings.Join(values, ",")
	})
}

func evaluateBeginEndIncr(text string) ([]string, bool) {
	m := beginEndIncrEvalRegex.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	before, after := strings.TrimSpace(m[1]), strings.TrimSpace(m[6])

	start, err1 := strconv.Atoi(m[2])
	end, err2 := strconv.Atoi(m[3])
	step, err3 := strconv.Atoi(m[4])
	if err1 != nil || err2 != nil || err3 != nil || step == 0 {
		return nil, false
	}
	pad := 0
	if m[5] != "" {
		pad, _ = strconv.Atoi(m[5])
	}

	var out []string
	if start <= end {
		for v := start; v <= end && step > 0; v += step {
			out = append(out, before+zeroFill(v, pad)+after)
		}
	} else {
		for v := start; v >= end && step < 0; v += step {
			out = append(out, before+zeroFill(v, pad)+after)
		}
	}
	return out, len(out) > 0
}

// zeroFill pads the digits of v to width, keeping a leading minus sign.
func zeroFill(v, width int) string {
	if v < 0 {
		return "-" + fmt.Sprintf("%0*d", max(width-1, 0), -v)
	}
	return fmt.Sprintf("%0*d", width, v)
}

// Private-use runes stand in for escaped characters while the csv reader
// splits the text.
const (
	escapedComma     = '\uE000'
	escapedQuote     = '\uE001'
	escapedBackslash = '\uE002'
)

var unescapeReplacer = strings.NewReplacer(
	string(escapedComma), ",",
	string(escapedQuote), `"`,
	string(escapedBackslash), `\`,
)

// splitQuoted splits on commas while keeping double-quoted items whole. A
// backslash makes the next character literal and is itself dropped, so
// \"x\" yields "x" and a\,b stays one item.
func splitQuoted(s string) []string {
	r := csv.NewReader(strings.NewReader(hideEscapes(s)))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var out []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return unescapeAll(strings.Split(hideEscapes(s), ","))
		}
		out = append(out, record...)
	}
	return unescapeAll(out)
}

func hideEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	escaped := false
	for _, c := range s {
		if !escaped && c == '\\' {
			escaped = true
			continue
		}
		if escaped {
			escaped = false
			switch c {
			case ',':
				c = escapedComma
			case '"':
				c = escapedQuote
			case '\\':
				c = escapedBackslash
			}
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func unescapeAll(items []string) []string {
	for i, item := range items {
		items[i] = unescapeReplacer.Replace(item)
	}
	return items
}

// repairBrackets joins items that were split inside parentheses, then inside
// square brackets.
func repairBrackets(items []string) []string {
	return joinOpenItems(joinOpenItems(items, '(', ')'), '[', ']')
}

// joinOpenItems merges an item that ends with an unclosed open bracket with
// the items after it, up to the first one that closes before opening again.
// A group that never closes is kept as one item.
func joinOpenItems(items []string, open, closing byte) []string {
	out := make([]string, 0, len(items))
	var pending []string
	for _, item := range items {
		if len(pending) == 0 {
			if endsOpen(item, open, closing) {
				pending = append(pending, item)
				continue
			}
			out = append(out, item)
			continue
		}
		pending = append(pending, item)
		if closesFirst(item, open, closing) && !endsOpen(item, open, closing) {
			out = append(out, strings.Join(pending, ","))
			pending = pending[:0]
		}
	}
	if len(pending) > 0 {
		out = append(out, strings.Join(pending, ","))
	}
	return out
}

// endsOpen reports whether the last open bracket of item is never closed.
func endsOpen(item string, open, closing byte) bool {
	i := strings.LastIndexByte(item, open)
	return i >= 0 && strings.IndexByte(item[i:], closing) < 0
}

// closesFirst reports whether item closes a bracket before opening one.
func closesFirst(item string, open, closing byte) bool {
	i := strings.IndexByte(item, closing)
	return i >= 0 && strings.IndexByte(item[:i], open) < 0
}

// ExpandIntString expands a string such as "1-3,5" into [1 2 3 5].
// Items that are not integers or ranges are ignored.
func ExpandIntString(text string) []int {
	var out []int
	for _, item := range ParseList(text, true) {
		if lo, hi, found := strings.Cut(item, "-"); found && lo != "" {
			a, err1 := strconv.Atoi(strings.TrimSpace(lo))
			b, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				continue
			}
			for v := a; v <= b; v++ {
				out = append(out, v)
			}
			continue
		}
		if v, err := strconv.Atoi(strings.TrimSpace(item)); err == nil {
			out = append(out, v)
		}
	}
	return out
}
