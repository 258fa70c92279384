package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Comparator is a threshold comparison operator.
type Comparator int

// All comparators supported. CompNA is the literal "NA" threshold.
const (
	CompNA Comparator = iota
	CompGT
	CompGE
	CompEQ
	CompNE
	CompLT
	CompLE
)

var comparatorSymbols = map[Comparator]string{
	CompGT: ">",
	CompGE: ">=",
	CompEQ: "==",
	CompNE: "!=",
	CompLT: "<",
	CompLE: "<=",
}

var comparatorLetters = map[Comparator]string{
	CompGT: "gt",
	CompGE: "ge",
	CompEQ: "eq",
	CompNE: "ne",
	CompLT: "lt",
	CompLE: "le",
}

// comparatorPrefixes is ordered so that two-character symbols are tried
// before their one-character prefixes.
var comparatorPrefixes = []struct {
	text string
	op   Comparator
}{
	{">=", CompGE}, {">", CompGT}, {"==", CompEQ}, {"!=", CompNE}, {"<=", CompLE}, {"<", CompLT},
	{"ge", CompGE}, {"gt", CompGT}, {"eq", CompEQ}, {"ne", CompNE}, {"le", CompLE}, {"lt", CompLT},
}

// Symbol returns the symbolic notation, e.g. ">=".
func (c Comparator) Symbol() string {
	if c == CompNA {
		return "NA"
	}
	return comparatorSymbols[c]
}

// Letter returns the letter notation, e.g. "ge".
func (c Comparator) Letter() string {
	if c == CompNA {
		return "NA"
	}
	return comparatorLetters[c]
}

// String implements fmt.Stringer.
func (c Comparator) String() string {
	return c.Symbol()
}

// MarshalText implements encoding.TextMarshaler.
func (c Comparator) MarshalText() ([]byte, error) {
	return []byte(c.Symbol()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Comparator) UnmarshalText(text []byte) error {
	op, ok := ParseComparator(string(text))
	if !ok {
		return NewResolveError(ErrCodeInvalidThreshold, "unknown comparator %q", string(text))
	}
	*c = op
	return nil
}

// ParseComparator looks up either notation.
func ParseComparator(text string) (Comparator, bool) {
	if text == "NA" {
		return CompNA, true
	}
	for _, p := range comparatorPrefixes {
		if p.text == text {
			return p.op, true
		}
	}
	return CompNA, false
}

// ComparisonExpr is one comparator and its operand.
type ComparisonExpr struct {
	Op          Comparator `json:"op"`
	Operand     float64    `json:"operand"`
	OperandText string     `json:"operand_text"`
	IsNumeric   bool       `json:"is_numeric"`
}

// String renders the expression in symbolic notation.
func (e ComparisonExpr) String() string {
	if e.Op == CompNA {
		return "NA"
	}
	return e.Op.Symbol() + e.OperandText
}

// LetterString renders the expression in letter notation.
func (e ComparisonExpr) LetterString() string {
	if e.Op == CompNA {
		return "NA"
	}
	return e.Op.Letter() + e.OperandText
}

// Threshold is one threshold item, possibly several expressions joined by
// "&&" or "||". Joiners has one element fewer than Terms.
type Threshold struct {
	Raw     string
	Terms   []ComparisonExpr
	Joiners []string
}

var (
	thresholdJoinRegex = regexp.MustCompile(`\|\||&&`)
	digitRegex         = regexp.MustCompile(`\d`)
)

// ParseThreshold parses a threshold such as ">=5", "gt0&&lt10" or "NA".
func ParseThreshold(text string) (Threshold, error) {
	raw := strings.TrimSpace(text)
	th := Threshold{Raw: raw, Joiners: thresholdJoinRegex.FindAllString(raw, -1)}
	for part := range strings.SplitSeq(thresholdJoinRegex.ReplaceAllString(raw, "\x00"), "\x00") {
		expr, ok := parseComparisonExpr(strings.TrimSpace(part))
		if !ok {
			return Threshold{}, NewResolveError(ErrCodeInvalidThreshold,
				"invalid threshold %q: values must use >,>=,==,!=,<,<=,gt,ge,eq,ne,lt, or le with a number, optionally combined with && or ||", text)
		}
		th.Terms = append(th.Terms, expr)
	}
	return th, nil
}

// ParseThresholds parses every item of a threshold list.
func ParseThresholds(items []string) ([]Threshold, error) {
	out := make([]Threshold, 0, len(items))
	for _, item := range items {
		th, err := ParseThreshold(item)
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	return out, nil
}

func parseComparisonExpr(text string) (ComparisonExpr, bool) {
	if text == "NA" {
		return ComparisonExpr{Op: CompNA}, true
	}
	for _, p := range comparatorPrefixes {
		operand, found := strings.CutPrefix(text, p.text)
		if !found || !digitRegex.MatchString(operand) {
			continue
		}
		expr := ComparisonExpr{Op: p.op, OperandText: operand}
		if v, err := strconv.ParseFloat(operand, 64); err == nil {
			expr.Operand = v
			expr.IsNumeric = true
		}
		return expr, true
	}
	return ComparisonExpr{}, false
}

// String returns the threshold as configured.
func (t Threshold) String() string {
	return t.Raw
}

// LetterFormat renders every term in letter notation, e.g. "ge5&&lt10".
func (t Threshold) LetterFormat() string {
	var sb strings.Builder
	for i, term := range t.Terms {
		if i > 0 && i-1 < len(t.Joiners) {
			sb.WriteString(t.Joiners[i-1])
		}
		sb.WriteString(term.LetterString())
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Threshold) MarshalText() ([]byte, error) {
	return []byte(t.Raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Threshold) UnmarshalText(text []byte) error {
	th, err := ParseThreshold(string(text))
	if err != nil {
		return err
	}
	*t = th
	return nil
}
