package core

import (
	"slices"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// FieldOptions controls ResolveFieldSpecs.
type FieldOptions struct {
	// DataType restricts resolution to one of FCST, OBS or ENS. Empty means
	// FCST and OBS together, which also runs pairing validation.
	DataType schema.DataType
	// Tool prefers <TYPE>_<TOOL>_VAR<n> keys over the generic ones.
	Tool string
	// Context fills template tags in names, levels, options and output names.
	Context *schema.TimeInfo
	// SkipValidation turns off the pairing checks.
	SkipValidation bool
}

// fieldInfo is the formatted configuration of one data type at one index.
type fieldInfo struct {
	dataType    schema.DataType
	name        string
	levels      []string
	thresholds  []schema.Threshold
	extra       string
	outputNames []string
}

// fieldInfoBuilder assembles the field information of one data type at one
// VAR index. The first failing step stops the chain.
type fieldInfoBuilder struct {
	idx      *varIndex
	index    string
	prefixes []string
	ctx      *schema.TimeInfo
	raw      map[string]string
	info     fieldInfo
	err      error
}

// newFieldInfoBuilder is the starting point for building one fieldInfo.
func newFieldInfoBuilder(idx *varIndex, index string, dataType schema.DataType, tool string, ctx *schema.TimeInfo) *fieldInfoBuilder {
	return &fieldInfoBuilder{
		idx:      idx,
		index:    index,
		prefixes: fieldSearchPrefixes(dataType, tool),
		ctx:      ctx,
		raw:      make(map[string]string),
		info:     fieldInfo{dataType: dataType},
	}
}

// LookupKeys finds the highest priority key for every attribute.
func (b *fieldInfoBuilder) LookupKeys() *fieldInfoBuilder {
	for _, attr := range attributeOrder {
		if value, ok := b.idx.lookup(b.index, attr, b.prefixes); ok {
			b.raw[attr] = value
		}
	}
	return b
}

// FormatName fills the name. Unknown tags are kept for the per-level pass.
func (b *fieldInfoBuilder) FormatName() *fieldInfoBuilder {
	if b.err != nil {
		return b
	}
	name := b.raw[attrName]
	if name == "" {
		b.err = schema.NewResolveError(schema.ErrCodeMissingName, "Name not found")
		return b
	}
	if b.ctx != nil {
		name, b.err = contract.Substitute(name, *b.ctx, true)
	}
	b.info.name = name
	return b
}

// FormatLevels fills each level. A missing level list becomes [""].
func (b *fieldInfoBuilder) FormatLevels() *fieldInfoBuilder {
	if b.err != nil {
		return b
	}
	levels := contract.ParseList(b.raw[attrLevels], true)
	if b.ctx != nil {
		if levels, b.err = contract.SubstituteAll(levels, *b.ctx, false); b.err != nil {
			return b
		}
	}
	if len(levels) == 0 {
		levels = []string{""}
	}
	b.info.levels = levels
	return b
}

// ParseThresholds checks every threshold item.
func (b *fieldInfoBuilder) ParseThresholds() *fieldInfoBuilder {
	if b.err != nil {
		return b
	}
	if raw := b.raw[attrThresh]; raw != "" {
		b.info.thresholds, b.err = schema.ParseThresholds(contract.ParseList(raw, true))
	}
	return b
}

// FormatOptions normalizes extra options to "a; b;".
func (b *fieldInfoBuilder) FormatOptions() *fieldInfoBuilder {
	if b.err != nil {
		return b
	}
	raw := b.raw[attrOptions]
	if raw == "" {
		return b
	}
	if b.ctx != nil {
		if raw, b.err = contract.Substitute(raw, *b.ctx, false); b.err != nil {
			return b
		}
	}
	var items []string
	for item := range strings.SplitSeq(raw, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	b.info.extra = strings.Join(items, "; ") + ";"
	return b
}

// FormatOutputNames fills output names, defaulting to the name once per level.
func (b *fieldInfoBuilder) FormatOutputNames() *fieldInfoBuilder {
	if b.err != nil {
		return b
	}
	raw := b.raw[attrOutputNames]
	if raw == "" {
		b.info.outputNames = make([]string, len(b.info.levels))
		for i := range b.info.outputNames {
			b.info.outputNames[i] = b.info.name
		}
		return b
	}
	names := contract.ParseList(raw, true)
	if b.ctx != nil {
		// level tags are filled per level position in expandLevels
		if names, b.err = contract.SubstituteAll(names, *b.ctx, true); b.err != nil {
			return b
		}
	}
	if len(names) != len(b.info.levels) {
		b.err = schema.NewResolveError(schema.ErrCodeLevelCountMismatch, "Number of levels does not match number of output names")
		return b
	}
	b.info.outputNames = names
	return b
}

// Build returns the formatted field information or the first error.
func (b *fieldInfoBuilder) Build() (fieldInfo, error) {
	if b.err != nil {
		return fieldInfo{}, b.err
	}
	return b.info, nil
}

// ResolveFieldSpecs reads every <TYPE>_VAR<n>_<ATTR> group and returns one
// entry per index and level position. Indices that fail are reported in
// FieldResult.Skipped instead of failing the whole call.
func ResolveFieldSpecs(store contract.ConfigStore, opts FieldOptions) (schema.FieldResult, error) {
	dataTypes := schema.DefaultDataTypes
	switch opts.DataType {
	case "":
	case schema.BothType:
		return schema.FieldResult{}, schema.NewResolveError(schema.ErrCodeInvalidDataType, "Cannot request BOTH explicitly")
	default:
		if _, ok := schema.ValidDataTypes[opts.DataType]; !ok {
			return schema.FieldResult{}, schema.NewResolveError(schema.ErrCodeInvalidDataType, "unknown data type %q", opts.DataType)
		}
		dataTypes = []schema.DataType{opts.DataType}
	}
	tool := strings.ToUpper(strings.TrimSpace(opts.Tool))

	idx := buildVarIndex(store)

	invalid := make(map[string]error)
	if opts.DataType == "" && !opts.SkipValidation && !SkipFieldValidation(store) {
		scopes := []string{""}
		if tool != "" {
			scopes = append(scopes, tool)
		}
		for _, issue := range validateFields(store, idx, scopes) {
			if _, seen := invalid[issue.index]; !seen {
				invalid[issue.index] = issue.err
			}
		}
	}

	var indices []string
	if tool != "" {
		indices = idx.nameIndices(dataTypes, tool)
	}
	if len(indices) == 0 {
		// tool keys are still preferred per attribute
		indices = idx.nameIndices(dataTypes, "")
	}

	var result schema.FieldResult
	for _, index := range indices {
		if err, bad := invalid[index]; bad {
			result.Skipped = append(result.Skipped, schema.NewSkippedField(index, "", err))
			continue
		}

		infos := make([]fieldInfo, 0, len(dataTypes))
		for _, dt := range dataTypes {
			info, err := newFieldInfoBuilder(idx, index, dt, tool, opts.Context).
				LookupKeys().
				FormatName().
				FormatLevels().
				ParseThresholds().
				FormatOptions().
				FormatOutputNames().
				Build()
			if err != nil {
				result.Skipped = append(result.Skipped, schema.NewSkippedField(index, dt,
					schema.WrapResolveError(codeOrDefault(err, schema.ErrCodeMissingName), err,
						"Could not process %s_VAR%s variables", dt, index)))
				continue
			}
			infos = append(infos, info)
		}
		if len(infos) != len(dataTypes) {
			continue
		}

		nLevels := len(infos[0].levels)
		if len(infos) > 1 && nLevels != len(infos[1].levels) {
			result.Skipped = append(result.Skipped, schema.NewSkippedField(index, "",
				schema.NewResolveError(schema.ErrCodeLevelCountMismatch,
					"%s_VAR%s and %s_VAR%s do not have the same number of levels", infos[0].dataType, index, infos[1].dataType, index)))
			continue
		}

		result.Entries = append(result.Entries, expandLevels(index, infos, nLevels, opts.Context)...)
	}

	slices.SortStableFunc(result.Entries, func(a, b schema.FieldEntry) int {
		return strings.Compare(a.Index, b.Index)
	})
	return result, nil
}

// expandLevels zips the level lists of every data type position-wise. The
// current level of each type is available to the name as {fcst_level} etc.
func expandLevels(index string, infos []fieldInfo, nLevels int, ctx *schema.TimeInfo) []schema.FieldEntry {
	var base schema.TimeInfo
	if ctx != nil {
		base = *ctx
	}
	entries := make([]schema.FieldEntry, 0, nLevels)
	for li := range nLevels {
		levels := make(map[schema.DataType]string, len(infos))
		for _, info := range infos {
			levels[info.dataType] = info.levels[li]
		}
		sub := base.WithLevels(levels)

		entry := schema.FieldEntry{Index: index, LevelIndex: li}
		for _, info := range infos {
			name, _ := contract.Substitute(info.name, sub, true)
			outputName, _ := contract.Substitute(info.outputNames[li], sub, true)
			entry.Specs = append(entry.Specs, schema.FieldSpec{
				DataType:     info.dataType,
				Index:        index,
				Name:         name,
				Level:        info.levels[li],
				Thresholds:   info.thresholds,
				ExtraOptions: info.extra,
				OutputName:   outputName,
			})
		}
		entries = append(entries, entry)
	}
	return entries
}

func codeOrDefault(err error, fallback schema.ErrorCode) schema.ErrorCode {
	if code, ok := schema.CodeOf(err); ok {
		return code
	}
	return fallback
}
