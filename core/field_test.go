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

// specSummary is the part of a FieldSpec most tests compare.
type specSummary struct {
	DataType   schema.DataType
	Name       string
	Level      string
	OutputName string
}

func summarize(result schema.FieldResult) [][]specSummary {
	out := make([][]specSummary, 0, len(result.Entries))
	for _, entry := range result.Entries {
		var row []specSummary
		for _, s := range entry.Specs {
			row = append(row, specSummary{s.DataType, s.Name, s.Level, s.OutputName})
		}
		out = append(out, row)
	}
	return out
}

func TestResolveFieldSpecs(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		opts     FieldOptions
		expected [][]specSummary
	}{
		{
			name: "paired fcst and obs",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "P500, P850",
				"OBS_VAR1_NAME": "TMP", "OBS_VAR1_LEVELS": "P500, P850",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "TMP", "P500", "TMP"}, {schema.ObsType, "TMP", "P500", "TMP"}},
				{{schema.FcstType, "TMP", "P850", "TMP"}, {schema.ObsType, "TMP", "P850", "TMP"}},
			},
		},
		{
			name: "both applies to fcst and obs",
			values: map[string]string{
				"BOTH_VAR1_NAME": "RH", "BOTH_VAR1_LEVELS": "Z2",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "RH", "Z2", "RH"}, {schema.ObsType, "RH", "Z2", "RH"}},
			},
		},
		{
			name: "different names per type",
			values: map[string]string{
				"FCST_VAR1_NAME": "APCP", "FCST_VAR1_LEVELS": "A06",
				"OBS_VAR1_NAME": "PRECIP", "OBS_VAR1_LEVELS": "A6",
				"FCST_VAR1_OUTPUT_NAMES": "accum", "OBS_VAR1_OUTPUT_NAMES": "precip",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "APCP", "A06", "accum"}, {schema.ObsType, "PRECIP", "A6", "precip"}},
			},
		},
		{
			name: "missing levels become one empty level",
			values: map[string]string{
				"BOTH_VAR1_NAME": "CAPE",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "CAPE", "", "CAPE"}, {schema.ObsType, "CAPE", "", "CAPE"}},
			},
		},
		{
			name: "indices sort by their string key",
			values: map[string]string{
				"BOTH_VAR2_NAME": "B", "BOTH_VAR10_NAME": "J", "BOTH_VAR1_NAME": "A",
			},
			opts: FieldOptions{DataType: schema.FcstType},
			expected: [][]specSummary{
				{{schema.FcstType, "A", "", "A"}},
				{{schema.FcstType, "J", "", "J"}},
				{{schema.FcstType, "B", "", "B"}},
			},
		},
		{
			name: "single data type skips pairing",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "Z2",
			},
			opts: FieldOptions{DataType: schema.FcstType},
			expected: [][]specSummary{
				{{schema.FcstType, "TMP", "Z2", "TMP"}},
			},
		},
		{
			name: "ensemble fields",
			values: map[string]string{
				"ENS_VAR1_NAME": "TMP", "ENS_VAR1_LEVELS": "Z2,Z10",
				"BOTH_VAR1_NAME": "IGNORED",
			},
			opts: FieldOptions{DataType: schema.EnsType},
			expected: [][]specSummary{
				{{schema.EnsType, "TMP", "Z2", "TMP"}},
				{{schema.EnsType, "TMP", "Z10", "TMP"}},
			},
		},
		{
			name: "legacy suffixes",
			values: map[string]string{
				"FCST_VAR1_INPUT_FIELD_NAME": "APCP", "FCST_VAR1_INPUT_LEVEL": "A03",
				"FCST_VAR1_OUTPUT_FIELD_NAME": "APCP_03",
			},
			opts: FieldOptions{DataType: schema.FcstType},
			expected: [][]specSummary{
				{{schema.FcstType, "APCP", "A03", "APCP_03"}},
			},
		},
		{
			name: "tool keys replace generic indices",
			values: map[string]string{
				"BOTH_VAR1_NAME":           "GENERIC",
				"BOTH_GRID_STAT_VAR2_NAME": "TOOL",
			},
			opts: FieldOptions{Tool: "grid_stat"},
			expected: [][]specSummary{
				{{schema.FcstType, "TOOL", "", "TOOL"}, {schema.ObsType, "TOOL", "", "TOOL"}},
			},
		},
		{
			name: "generic indices when the tool has none",
			values: map[string]string{
				"BOTH_VAR1_NAME": "GENERIC",
			},
			opts: FieldOptions{Tool: "POINT_STAT"},
			expected: [][]specSummary{
				{{schema.FcstType, "GENERIC", "", "GENERIC"}, {schema.ObsType, "GENERIC", "", "GENERIC"}},
			},
		},
		{
			name: "tool prefix wins per attribute",
			values: map[string]string{
				"BOTH_VAR1_NAME":           "GENERIC",
				"BOTH_VAR1_LEVELS":         "P500",
				"FCST_GRID_STAT_VAR1_NAME": "TOOL",
			},
			opts: FieldOptions{DataType: schema.FcstType, Tool: "GRID_STAT"},
			expected: [][]specSummary{
				{{schema.FcstType, "TOOL", "P500", "TOOL"}},
			},
		},
		{
			name: "both wins over the typed key",
			values: map[string]string{
				"BOTH_VAR1_NAME": "BOTH",
				"FCST_VAR1_NAME": "TYPED",
			},
			opts: FieldOptions{DataType: schema.FcstType},
			expected: [][]specSummary{
				{{schema.FcstType, "BOTH", "", "BOTH"}},
			},
		},
		{
			name: "current level in the name",
			values: map[string]string{
				"BOTH_VAR1_NAME": "read.py {fcst_level}", "BOTH_VAR1_LEVELS": "L0,L1",
			},
			opts: FieldOptions{DataType: schema.FcstType},
			expected: [][]specSummary{
				{{schema.FcstType, "read.py L0", "L0", "read.py L0"}},
				{{schema.FcstType, "read.py L1", "L1", "read.py L1"}},
			},
		},
		{
			name: "formatted level tag with a run context",
			values: map[string]string{
				"FCST_VAR1_NAME": "APCP_{fcst_level?fmt=%2H}", "FCST_VAR1_LEVELS": "A06,A12",
				"FCST_VAR1_OUTPUT_NAMES": "APCP_{init?fmt=%Y%m%d}_{fcst_level}, APCP_{init?fmt=%Y%m%d}_{fcst_level}",
			},
			opts: FieldOptions{
				DataType: schema.FcstType,
				Context:  &schema.TimeInfo{Init: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
			},
			expected: [][]specSummary{
				{{schema.FcstType, "APCP_06", "A06", "APCP_20240131_A06"}},
				{{schema.FcstType, "APCP_12", "A12", "APCP_20240131_A12"}},
			},
		},
		{
			name: "python embedding with one fcst level",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "P500",
				"OBS_VAR1_NAME": "obs.py /data/obs.nc",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "TMP", "P500", "TMP"}, {schema.ObsType, "obs.py /data/obs.nc", "", "obs.py /data/obs.nc"}},
			},
		},
		{
			name: "reformatters are not validated",
			values: map[string]string{
				"PROCESS_LIST":     "PCPCombine",
				"FCST_VAR1_NAME":   "APCP",
				"FCST_VAR1_LEVELS": "A03",
				"OBS_VAR1_NAME":    "APCP",
			},
			expected: [][]specSummary{
				{{schema.FcstType, "APCP", "A03", "APCP"}, {schema.ObsType, "APCP", "", "APCP"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolveFieldSpecs(confstore.NewConfig(tt.values), tt.opts)
			require.NoError(t, err)
			assert.Empty(t, result.Skipped)
			assert.Equal(t, tt.expected, summarize(result))
		})
	}
}

func TestResolveFieldSpecs_Attributes(t *testing.T) {
	store := confstore.NewConfig(map[string]string{
		"BOTH_VAR1_NAME":    "TMP",
		"BOTH_VAR1_LEVELS":  "P500",
		"BOTH_VAR1_THRESH":  "gt273, le300",
		"BOTH_VAR1_OPTIONS": " censor_thresh = [ >12000 ];censor_val = [12000] ; ",
	})

	result, err := ResolveFieldSpecs(store, FieldOptions{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	entry := result.Entries[0]
	assert.Equal(t, "1", entry.Index)
	assert.Equal(t, 0, entry.LevelIndex)

	fcst, ok := entry.Get(schema.FcstType)
	require.True(t, ok)
	assert.Equal(t, "1", fcst.Index)
	assert.Equal(t, []string{"gt273", "le300"}, fcst.ThresholdStrings())
	assert.Equal(t, "censor_thresh = [ >12000 ]; censor_val = [12000];", fcst.ExtraOptions)

	obs, ok := entry.Get(schema.ObsType)
	require.True(t, ok)
	assert.Equal(t, fcst.Thresholds, obs.Thresholds)
	assert.Equal(t, []string{"1"}, result.Indices())
	assert.Len(t, result.Flatten(), 2)
}

func TestResolveFieldSpecs_TimeContext(t *testing.T) {
	initTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := schema.TimeInfo{Init: initTime}.WithLead(schema.HoursDuration(6)).Complete()

	store := confstore.NewConfig(map[string]string{
		"FCST_VAR1_NAME":    "APCP_{lead?fmt=%HH}",
		"FCST_VAR1_LEVELS":  "A{lead?fmt=%H}",
		"FCST_VAR1_OPTIONS": "file_type = {init?fmt=%Y%m%d%H};",
		"OBS_VAR1_NAME":     "precip_{valid?fmt=%H}",
		"OBS_VAR1_LEVELS":   "A06",
	})

	result, err := ResolveFieldSpecs(store, FieldOptions{Context: &ctx})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	fcst, _ := result.Entries[0].Get(schema.FcstType)
	assert.Equal(t, "APCP_06H", fcst.Name)
	assert.Equal(t, "A06", fcst.Level)
	assert.Equal(t, "file_type = 2024030100;", fcst.ExtraOptions)

	obs, _ := result.Entries[0].Get(schema.ObsType)
	assert.Equal(t, "precip_06", obs.Name)
}

func TestResolveFieldSpecs_Skipped(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		opts     FieldOptions
		index    string
		code     schema.ErrorCode
		kind     error
		dataType schema.DataType
		entries  int
	}{
		{
			name: "unpaired fcst",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP",
				"BOTH_VAR2_NAME": "RH",
			},
			index: "1", code: schema.ErrCodeUnpairedField, kind: schema.ErrUnpairedFieldSpec, entries: 1,
		},
		{
			name: "level counts differ",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "P500,P850",
				"OBS_VAR1_NAME": "TMP", "OBS_VAR1_LEVELS": "P500",
			},
			index: "1", code: schema.ErrCodeLevelCountMismatch, kind: schema.ErrLevelCountMismatch,
		},
		{
			name: "level counts differ without validation",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "P500,P850",
				"OBS_VAR1_NAME": "TMP", "OBS_VAR1_LEVELS": "P500",
			},
			opts:  FieldOptions{SkipValidation: true},
			index: "1", code: schema.ErrCodeLevelCountMismatch, kind: schema.ErrLevelCountMismatch,
		},
		{
			name: "both mixed with typed keys",
			values: map[string]string{
				"BOTH_VAR1_NAME": "TMP", "FCST_VAR1_NAME": "TMP",
			},
			index: "1", code: schema.ErrCodeBothWithTypedField, kind: schema.ErrConflictingSpecification,
		},
		{
			name: "output names do not match levels",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_LEVELS": "P500,P850", "FCST_VAR1_OUTPUT_NAMES": "t500",
			},
			opts:  FieldOptions{DataType: schema.FcstType},
			index: "1", code: schema.ErrCodeLevelCountMismatch, kind: schema.ErrLevelCountMismatch, dataType: schema.FcstType,
		},
		{
			name: "bad threshold",
			values: map[string]string{
				"FCST_VAR1_NAME": "TMP", "FCST_VAR1_THRESH": "warm",
			},
			opts:  FieldOptions{DataType: schema.FcstType},
			index: "1", code: schema.ErrCodeInvalidThreshold, kind: schema.ErrConfigFormat, dataType: schema.FcstType,
		},
		{
			name: "level tag without a value",
			values: map[string]string{
				"ENS_VAR1_NAME": "TMP", "ENS_VAR1_LEVELS": "{custom}",
			},
			opts:  FieldOptions{DataType: schema.EnsType, Context: &schema.TimeInfo{}},
			index: "1", code: schema.ErrCodeUnknownTag, kind: schema.ErrConfigFormat, dataType: schema.EnsType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolveFieldSpecs(confstore.NewConfig(tt.values), tt.opts)
			require.NoError(t, err)
			assert.Len(t, result.Entries, tt.entries)
			require.Len(t, result.Skipped, 1)

			skipped := result.Skipped[0]
			assert.Equal(t, tt.index, skipped.Index)
			assert.Equal(t, string(tt.code), skipped.Code)
			assert.Equal(t, tt.dataType, skipped.DataType)
			assert.NotEmpty(t, skipped.Reason)
			assert.True(t, errors.Is(skipped.Err, tt.kind), "skip error %v should be %v", skipped.Err, tt.kind)
		})
	}
}

func TestResolveFieldSpecs_SuggestedRewrites(t *testing.T) {
	store := confstore.NewConfig(map[string]string{
		"METPLUS_CONFIG_FILES": "a.conf, b.conf",
		"OBS_VAR3_NAME":        "TMP",
	})

	result, err := ResolveFieldSpecs(store, FieldOptions{})
	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, []string{
		"sed -i 's|^OBS_VAR3_NAME|BOTH_VAR3_NAME|g' a.conf",
		"sed -i 's|{OBS_VAR3_NAME}|{BOTH_VAR3_NAME}|g' a.conf",
		"sed -i 's|^OBS_VAR3_NAME|BOTH_VAR3_NAME|g' b.conf",
		"sed -i 's|{OBS_VAR3_NAME}|{BOTH_VAR3_NAME}|g' b.conf",
	}, result.Skipped[0].Rewrites)
}

func TestResolveFieldSpecs_DataTypeErrors(t *testing.T) {
	store := confstore.NewConfig(map[string]string{"BOTH_VAR1_NAME": "TMP"})

	_, err := ResolveFieldSpecs(store, FieldOptions{DataType: schema.BothType})
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrConfigFormat))

	_, err = ResolveFieldSpecs(store, FieldOptions{DataType: "ANALYSIS"})
	require.Error(t, err)
	code, _ := schema.CodeOf(err)
	assert.Equal(t, schema.ErrCodeInvalidDataType, code)
}

func TestResolveFieldSpecs_Empty(t *testing.T) {
	result, err := ResolveFieldSpecs(confstore.NewConfig(map[string]string{"LEAD_SEQ": "0"}), FieldOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Empty(t, result.Skipped)
}

func TestFieldSearchPrefixes(t *testing.T) {
	assert.Equal(t,
		[]string{"BOTH_GRID_STAT_", "FCST_GRID_STAT_", "BOTH_", "FCST_"},
		fieldSearchPrefixes(schema.FcstType, "grid_stat"))
	assert.Equal(t, []string{"BOTH_", "OBS_"}, fieldSearchPrefixes(schema.ObsType, ""))
	assert.Equal(t, []string{"ENS_MODE_", "ENS_"}, fieldSearchPrefixes(schema.EnsType, "MODE"))
}

func TestBuildVarIndex(t *testing.T) {
	store := confstore.NewConfig(map[string]string{
		"FCST_VAR1_NAME":                    "A",
		"OBS_GRID_STAT_VAR1_LEVELS":         "P500",
		"BOTH_SERIES_ANALYSIS_VAR12_THRESH": "gt0",
		"FCST_VAR1_UNKNOWN":                 "x",
		"LEAD_SEQ":                          "0",
	})

	idx := buildVarIndex(store)
	assert.Len(t, idx.byIndex["1"], 2)
	assert.Len(t, idx.byIndex["12"], 1)
	assert.Equal(t, "SERIES_ANALYSIS", idx.byIndex["12"][0].Tool)
	assert.Equal(t, []string{"GRID_STAT", "SERIES_ANALYSIS"}, idx.toolScopes())
	assert.Equal(t, []string{"1"}, idx.nameIndices(schema.DefaultDataTypes, ""))
	assert.Empty(t, idx.nameIndices(schema.DefaultDataTypes, "GRID_STAT"))
}
