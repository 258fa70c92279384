package schema

// FieldSpec is one resolved field of one data type at one level position.
type FieldSpec struct {
	DataType     DataType    `json:"data_type"`
	Index        string      `json:"index"`
	Name         string      `json:"name"`
	Level        string      `json:"level"`
	Thresholds   []Threshold `json:"thresholds"`
	ExtraOptions string      `json:"extra_options"`
	OutputName   string      `json:"output_name"`
}

// ThresholdStrings returns the thresholds as configured.
func (f FieldSpec) ThresholdStrings() []string {
	out := make([]string, len(f.Thresholds))
	for i, th := range f.Thresholds {
		out[i] = th.Raw
	}
	return out
}

// FieldEntry pairs the specs of every requested data type for one level
// position of one VAR index.
type FieldEntry struct {
	Index      string      `json:"index"`
	LevelIndex int         `json:"level_index"`
	Specs      []FieldSpec `json:"specs"`
}

// Get returns the spec of the given data type.
func (e FieldEntry) Get(dt DataType) (FieldSpec, bool) {
	for _, s := range e.Specs {
		if s.DataType == dt {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// SkippedField records a VAR index that was dropped and why.
type SkippedField struct {
	Index    string   `json:"index"`
	DataType DataType `json:"data_type,omitempty"`
	Reason   string   `json:"reason"`
	Code     string   `json:"code,omitempty"`
	Rewrites []string `json:"suggested_rewrites,omitempty"`
	Err      error    `json:"-"`
}

// NewSkippedField builds a SkippedField from a resolution error.
func NewSkippedField(index string, dt DataType, err error) SkippedField {
	sf := SkippedField{Index: index, DataType: dt, Reason: err.Error(), Err: err, Rewrites: SuggestedRewrites(err)}
	if code, ok := CodeOf(err); ok {
		sf.Code = string(code)
	}
	return sf
}

// FieldResult is the outcome of field resolution: the accepted entries in
// index order and the indices that were skipped.
type FieldResult struct {
	Entries []FieldEntry   `json:"entries"`
	Skipped []SkippedField `json:"skipped,omitempty"`
}

// Flatten returns every spec in entry order.
func (r FieldResult) Flatten() []FieldSpec {
	var out []FieldSpec
	for _, e := range r.Entries {
		out = append(out, e.Specs...)
	}
	return out
}

// Indices returns the distinct accepted indices in order.
func (r FieldResult) Indices() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range r.Entries {
		if _, ok := seen[e.Index]; ok {
			continue
		}
		seen[e.Index] = struct{}{}
		out = append(out, e.Index)
	}
	return out
}
