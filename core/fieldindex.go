package core

import (
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// Logical field attributes.
const (
	attrName        = "name"
	attrLevels      = "levels"
	attrThresh      = "thresh"
	attrOptions     = "options"
	attrOutputNames = "output_names"
)

// attributeSuffixes lists the accepted key suffixes of each attribute in
// priority order.
var attributeSuffixes = map[string][]string{
	attrName:        {"NAME", "INPUT_FIELD_NAME", "FIELD_NAME"},
	attrLevels:      {"LEVELS", "INPUT_LEVEL", "FIELD_LEVEL"},
	attrThresh:      {"THRESH"},
	attrOptions:     {"OPTIONS"},
	attrOutputNames: {"OUTPUT_NAMES", "OUTPUT_NAME", "OUTPUT_FIELD_NAME", "FIELD_NAME"},
}

var attributeOrder = []string{attrName, attrLevels, attrThresh, attrOptions, attrOutputNames}

var fieldKeyRegex = regexp.MustCompile(
	`^(FCST|OBS|ENS|BOTH)(?:_(\w+?))?_VAR(\d+)_(NAME|INPUT_FIELD_NAME|FIELD_NAME|LEVELS|INPUT_LEVEL|FIELD_LEVEL|THRESH|OPTIONS|OUTPUT_NAMES|OUTPUT_NAME|OUTPUT_FIELD_NAME)$`)

// fieldKey is one parsed <TYPE>[_<TOOL>]_VAR<n>_<SUFFIX> key.
type fieldKey struct {
	DataType schema.DataType
	Tool     string
	Index    string
	Suffix   string
	Key      string
}

// varIndex maps every VAR index to the keys found for it. It is built by
// one scan over the config section.
type varIndex struct {
	store   contract.ConfigStore
	byIndex map[string][]fieldKey
	keys    map[string]fieldKey
}

func buildVarIndex(store contract.ConfigStore) *varIndex {
	idx := &varIndex{
		store:   store,
		byIndex: make(map[string][]fieldKey),
		keys:    make(map[string]fieldKey),
	}
	for _, key := range store.Keys(contract.ConfigSection) {
		m := fieldKeyRegex.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		fk := fieldKey{DataType: schema.DataType(m[1]), Tool: m[2], Index: m[3], Suffix: m[4], Key: key}
		idx.byIndex[fk.Index] = append(idx.byIndex[fk.Index], fk)
		idx.keys[key] = fk
	}
	return idx
}

// nameIndices returns the indices that have a NAME-family key for one of
// dataTypes, or BOTH, under the tool prefix ("" for generic keys).
func (v *varIndex) nameIndices(dataTypes []schema.DataType, tool string) []string {
	var out []string
	for index, keys := range v.byIndex {
		for _, fk := range keys {
			if fk.Tool != tool || !slices.Contains(attributeSuffixes[attrName], fk.Suffix) {
				continue
			}
			if fk.DataType == schema.BothType || slices.Contains(dataTypes, fk.DataType) {
				out = append(out, index)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// typesFor returns the data type prefixes set for index under the tool
// scope ("" for generic keys) with one of the given suffixes.
func (v *varIndex) typesFor(index, scope string, suffixes ...string) []schema.DataType {
	var out []schema.DataType
	for _, fk := range v.byIndex[index] {
		if fk.Tool != scope || !slices.Contains(suffixes, fk.Suffix) {
			continue
		}
		if !slices.Contains(out, fk.DataType) {
			out = append(out, fk.DataType)
		}
	}
	return out
}

// indicesWithSuffix lists the indices with a key ending in suffix under the
// tool scope.
func (v *varIndex) indicesWithSuffix(scope, suffix string) []string {
	var out []string
	for index, keys := range v.byIndex {
		for _, fk := range keys {
			if fk.Tool == scope && fk.Suffix == suffix {
				out = append(out, index)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// toolScopes lists the tool names used in field keys, sorted.
func (v *varIndex) toolScopes() []string {
	var out []string
	for _, keys := range v.byIndex {
		for _, fk := range keys {
			if fk.Tool != "" && !slices.Contains(out, fk.Tool) {
				out = append(out, fk.Tool)
			}
		}
	}
	slices.Sort(out)
	return out
}

// rawValue returns the value of an exact key.
func (v *varIndex) rawValue(key string) string {
	value, _ := v.store.GetRaw(contract.ConfigSection, key)
	return value
}

// lookup returns the first configured key among prefixes x suffixes of attr.
// Prefixes are tried in order, and for each prefix the suffixes are tried in
// order.
func (v *varIndex) lookup(index, attr string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		for _, suffix := range attributeSuffixes[attr] {
			key := prefix + "VAR" + index + "_" + suffix
			if _, ok := v.keys[key]; ok {
				value, _ := v.store.GetRaw(contract.ConfigSection, key)
				return value, true
			}
		}
	}
	return "", false
}

// fieldSearchPrefixes returns the key prefixes searched for dataType, most
// specific first: BOTH_<TOOL>_, <TYPE>_<TOOL>_, BOTH_, <TYPE>_. BOTH is only
// searched for FCST and OBS.
func fieldSearchPrefixes(dataType schema.DataType, tool string) []string {
	var scopes []string
	if tool != "" {
		scopes = append(scopes, strings.ToUpper(tool)+"_")
	}
	scopes = append(scopes, "")

	var out []string
	for _, scope := range scopes {
		if dataType == schema.FcstType || dataType == schema.ObsType {
			out = append(out, string(schema.BothType)+"_"+scope)
		}
		out = append(out, string(dataType)+"_"+scope)
	}
	return out
}
