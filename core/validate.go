package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// validatedSuffixes are the field attributes checked for FCST/OBS pairing.
var validatedSuffixes = []string{"NAME", "LEVELS", "THRESH", "OPTIONS"}

// fieldIssue is one failed pairing rule.
type fieldIssue struct {
	index string
	tool  string
	ext   string
	err   *schema.ResolveError
}

// ValidateFieldInfo checks that every VAR<n> attribute is set either as
// BOTH alone or as FCST and OBS together, and that paired FCST/OBS level
// lists have the same length. Generic keys are always checked; tool keys
// are checked for tool, or for every tool found when tool is empty.
func ValidateFieldInfo(store contract.ConfigStore, tool string) schema.ValidationReport {
	idx := buildVarIndex(store)
	scopes := []string{""}
	if tool = strings.ToUpper(strings.TrimSpace(tool)); tool != "" {
		scopes = append(scopes, tool)
	} else {
		scopes = append(scopes, idx.toolScopes()...)
	}
	issues := validateFields(store, idx, scopes)

	report := schema.ValidationReport{Checked: len(idx.byIndex), Issues: []schema.ValidationIssue{}}
	for _, issue := range issues {
		report.Issues = append(report.Issues, schema.ValidationIssue{
			Index:     issue.index,
			Tool:      issue.tool,
			Attribute: issue.ext,
			Code:      string(issue.err.Code),
			Message:   issue.err.Message,
			Rewrites:  schema.SuggestedRewrites(issue.err),
		})
	}
	return report
}

// CheckFieldInfo is ValidateFieldInfo gated by the process list: a run made
// only of reformatters does not need paired fields.
func CheckFieldInfo(store contract.ConfigStore, tool string) schema.ValidationReport {
	if SkipFieldValidation(store) {
		return schema.ValidationReport{Skipped: true, Issues: []schema.ValidationIssue{}}
	}
	return ValidateFieldInfo(store, tool)
}

// validateFields runs the pairing rules over the given tool scopes, where
// "" is the generic scope.
func validateFields(store contract.ConfigStore, idx *varIndex, scopes []string) []fieldIssue {
	configFiles := configFileList(store)

	var issues []fieldIssue
	for _, scope := range scopes {
		for _, ext := range validatedSuffixes {
			for _, index := range idx.indicesWithSuffix(scope, ext) {
				types := idx.typesFor(index, scope, ext)
				if err := validateVarItem(idx, types, index, scope, ext, configFiles); err != nil {
					issues = append(issues, fieldIssue{index: index, tool: scope, ext: ext, err: err})
					continue
				}
				if ext == "LEVELS" && onlyFcstObs(types) {
					if err := checkLevelCounts(idx, index, scope); err != nil {
						issues = append(issues, fieldIssue{index: index, tool: scope, ext: ext, err: err})
					}
				}
			}
		}
	}
	return issues
}

// validateVarItem applies the pairing rule to the data types found for one
// index and attribute.
func validateVarItem(idx *varIndex, types []schema.DataType, index, scope, ext string, configFiles []string) *schema.ResolveError {
	has := func(dt schema.DataType) bool { return slices.Contains(types, dt) }
	fullExt := fmt.Sprintf("_%sVAR%s_%s", scopePrefix(scope), index, ext)

	if has(schema.BothType) && (has(schema.FcstType) || has(schema.ObsType)) {
		return schema.NewResolveError(schema.ErrCodeBothWithTypedField, "Cannot set FCST%s or OBS%s if BOTH%s is set.", fullExt, fullExt, fullExt)
	}
	if ext == "THRESH" || ext == "OPTIONS" {
		return nil
	}

	var set, other schema.DataType
	switch {
	case has(schema.FcstType) && !has(schema.ObsType):
		set, other = schema.FcstType, schema.ObsType
	case has(schema.ObsType) && !has(schema.FcstType):
		set, other = schema.ObsType, schema.FcstType
	default:
		return nil
	}

	if ext == "LEVELS" {
		levels := contract.ParseList(idx.rawValue(fmt.Sprintf("%s%s", set, fullExt)), true)
		otherName := idx.rawValue(fmt.Sprintf("%s_%sVAR%s_NAME", other, scopePrefix(scope), index))
		if contract.IsPythonScript(otherName) && len(levels) == 1 {
			return nil
		}
	}

	err := schema.NewResolveError(schema.ErrCodeUnpairedField,
		"If %s%s is set, you must either set %s%s or change %s%s to BOTH%s", set, fullExt, other, fullExt, set, fullExt, fullExt)
	return err.WithDetails(map[string]any{"suggested_rewrites": bothRewrites(set, fullExt, configFiles)})
}

// checkLevelCounts compares FCST and OBS level list lengths. A missing list
// counts as one empty level.
func checkLevelCounts(idx *varIndex, index, scope string) *schema.ResolveError {
	count := func(dt schema.DataType) int {
		n := len(contract.ParseList(idx.rawValue(fmt.Sprintf("%s_%sVAR%s_LEVELS", dt, scopePrefix(scope), index)), true))
		return max(n, 1)
	}
	if count(schema.FcstType) != count(schema.ObsType) {
		return schema.NewResolveError(schema.ErrCodeLevelCountMismatch,
			"FCST_%sVAR%s_LEVELS and OBS_%sVAR%s_LEVELS do not have the same number of elements", scopePrefix(scope), index, scopePrefix(scope), index)
	}
	return nil
}

// bothRewrites suggests sed commands that rename a one-sided key to BOTH.
func bothRewrites(dt schema.DataType, fullExt string, configFiles []string) []string {
	var out []string
	for _, file := range configFiles {
		out = append(out,
			fmt.Sprintf("sed -i 's|^%s%s|BOTH%s|g' %s", dt, fullExt, fullExt, file),
			fmt.Sprintf("sed -i 's|{%s%s}|{BOTH%s}|g' %s", dt, fullExt, fullExt, file),
		)
	}
	return out
}

func configFileList(store contract.ConfigStore) []string {
	files := contract.ParseList(store.GetString(contract.ConfigSection, "METPLUS_CONFIG_FILES", ""), false)
	if len(files) == 0 {
		return []string{"<config>"}
	}
	return files
}

func onlyFcstObs(types []schema.DataType) bool {
	for _, t := range types {
		if t != schema.FcstType && t != schema.ObsType {
			return false
		}
	}
	return len(types) > 0
}

func scopePrefix(scope string) string {
	if scope == "" {
		return ""
	}
	return scope + "_"
}
