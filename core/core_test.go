package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/metplus/internal/confstore"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/history"
	"github.com/huangsam/metplus/schema"
)

// jsonConfig writes JSON to a file under the test's temp dir.
func jsonConfig(t *testing.T) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:     schema.JSONOut,
		OutputFile: filepath.Join(t.TempDir(), "out.json"),
		ClockTime:  fixedClock,
	}
}

func readJSON(t *testing.T, cfg *contract.Config, v any) {
	t.Helper()
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

// bufferLogger attaches a JSON logger writing to buf.
func bufferLogger(buf *bytes.Buffer) context.Context {
	return WithLogger(context.Background(), zerolog.New(buf).Level(zerolog.DebugLevel))
}

type planOutput struct {
	RunID string `json:"run_id"`
	Ticks []struct {
		Skipped bool `json:"skipped"`
		Runs    []struct {
			Lead   string `json:"lead"`
			Fields struct {
				Entries []json.RawMessage `json:"entries"`
			} `json:"fields"`
		} `json:"runs"`
	} `json:"ticks"`
}

func TestExecutePlan_RecordsHistory(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.ConfigFiles = []string{"grid_stat.conf"}

	store := &history.MockHistoryStore{}
	store.On("BeginRun", mock.Anything, mock.Anything, mock.MatchedBy(func(params map[string]any) bool {
		snap, ok := params["config"].(map[string]map[string]string)
		return params["clock_time"] == "2024-03-01T12:34:56Z" && ok && snap["config"]["LOOP_BY"] == "INIT"
	})).Return(int64(7), nil)
	store.On("RecordFields", int64(7), mock.Anything, mock.Anything).Return(nil).Times(4)
	store.On("EndRun", int64(7), mock.Anything, mock.Anything).Return(nil)

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(store)

	err := ExecutePlan(context.Background(), cfg, planConfig(nil), mgr)
	require.NoError(t, err)

	var out planOutput
	readJSON(t, cfg, &out)
	assert.NotEmpty(t, out.RunID)
	require.Len(t, out.Ticks, 2)
	require.Len(t, out.Ticks[0].Runs, 2)
	assert.Equal(t, "6H", out.Ticks[0].Runs[1].Lead)
	assert.Len(t, out.Ticks[0].Runs[1].Fields.Entries, 1)

	mgr.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestExecutePlan_HistoryFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := bufferLogger(&buf)
	cfg := jsonConfig(t)

	store := &history.MockHistoryStore{}
	store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("database is locked"))

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(store)

	require.NoError(t, ExecutePlan(ctx, cfg, planConfig(nil), mgr))
	assert.Contains(t, buf.String(), "failed to record plan history")
	assert.Contains(t, buf.String(), "database is locked")
	store.AssertNotCalled(t, "RecordFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutePlan_LogsSkippedFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := bufferLogger(&buf)
	cfg := jsonConfig(t)

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(nil)

	require.NoError(t, ExecutePlan(ctx, cfg, planConfig(map[string]string{"OBS_VAR2_NAME": "RH"}), mgr))
	assert.Contains(t, buf.String(), `"index":"2"`)
	assert.Contains(t, buf.String(), `"code":"field_unpaired"`)
	assert.Contains(t, buf.String(), `"scope":"GridStat"`)
	assert.Contains(t, buf.String(), "BOTH_VAR2_NAME")
}

func TestExecutePlan_Error(t *testing.T) {
	cfg := jsonConfig(t)
	err := ExecutePlan(context.Background(), cfg, confstore.NewConfig(nil), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrLoopModeUndetermined))
	assert.NoFileExists(t, cfg.OutputFile)
}

func TestExecuteLeads(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.Groups = true
	store := confstore.NewConfig(map[string]string{
		"LEAD_SEQ_1": "0,6", "LEAD_SEQ_1_LABEL": "early",
		"LEAD_SEQ_2": "1d", "LEAD_SEQ_2_LABEL": "late",
	})

	require.NoError(t, ExecuteLeads(context.Background(), cfg, store))

	var out struct {
		Leads []struct {
			Lead    string `json:"lead"`
			Seconds int64  `json:"seconds"`
		} `json:"leads"`
		Wildcard bool `json:"wildcard"`
		Groups   []struct {
			Label string `json:"label"`
		} `json:"groups"`
	}
	readJSON(t, cfg, &out)
	require.Len(t, out.Leads, 3)
	assert.Equal(t, "24H", out.Leads[2].Lead)
	assert.Equal(t, int64(86400), out.Leads[2].Seconds)
	assert.False(t, out.Wildcard)
	require.Len(t, out.Groups, 2)
	assert.Equal(t, "late", out.Groups[1].Label)
}

func TestExecuteLeads_InitSeq(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.LeadValid = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := confstore.NewConfig(map[string]string{"INIT_SEQ": "0", "LEAD_SEQ_MAX": "24"})

	require.NoError(t, ExecuteLeads(context.Background(), cfg, store))

	var out struct {
		Leads []struct {
			Lead string `json:"lead"`
		} `json:"leads"`
	}
	readJSON(t, cfg, &out)
	require.Len(t, out.Leads, 1)
	assert.Equal(t, "12H", out.Leads[0].Lead)

	cfg.LeadValid = time.Time{}
	cfg.LeadInit = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := ExecuteLeads(context.Background(), cfg, store)
	assert.True(t, errors.Is(err, schema.ErrMissingRequiredBound))
}

func TestExecuteLeads_Wildcard(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.Wildcard = true

	require.NoError(t, ExecuteLeads(context.Background(), cfg, confstore.NewConfig(nil)))

	var out struct {
		Wildcard bool `json:"wildcard"`
	}
	readJSON(t, cfg, &out)
	assert.True(t, out.Wildcard)
}

func TestExecuteWindow(t *testing.T) {
	cfg := jsonConfig(t)
	require.NoError(t, ExecuteWindow(context.Background(), cfg, planConfig(nil)))

	var out struct {
		LoopBy   string   `json:"loop_by"`
		Interval string   `json:"interval"`
		Ticks    []string `json:"ticks"`
	}
	readJSON(t, cfg, &out)
	assert.Equal(t, "init", out.LoopBy)
	assert.Equal(t, "12H", out.Interval)
	assert.Equal(t, []string{"2024-03-01T00:00:00Z", "2024-03-01T12:00:00Z"}, out.Ticks)
}

func TestExecuteFields(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.Tool = "GRID_STAT"
	cfg.LeadInit = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ExecuteFields(context.Background(), cfg, planConfig(nil)))

	var out struct {
		Entries []struct {
			Specs []struct {
				DataType string `json:"data_type"`
				Name     string `json:"name"`
			} `json:"specs"`
		} `json:"entries"`
	}
	readJSON(t, cfg, &out)
	require.Len(t, out.Entries, 1)
	require.Len(t, out.Entries[0].Specs, 2)
	assert.Equal(t, "FCST", out.Entries[0].Specs[0].DataType)
	assert.Equal(t, "TMP_00", out.Entries[0].Specs[0].Name)
}

func TestExecuteFields_BadDataType(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.DataType = schema.BothType
	require.Error(t, ExecuteFields(context.Background(), cfg, planConfig(nil)))
}

func TestExecuteCheck(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		cfg := jsonConfig(t)
		require.NoError(t, ExecuteCheck(context.Background(), cfg, planConfig(nil)))

		var out struct {
			OK      bool `json:"ok"`
			Checked int  `json:"checked"`
		}
		readJSON(t, cfg, &out)
		assert.True(t, out.OK)
		assert.Equal(t, 1, out.Checked)
	})

	t.Run("issues", func(t *testing.T) {
		cfg := jsonConfig(t)
		err := ExecuteCheck(context.Background(), cfg, planConfig(map[string]string{
			"FCST_VAR2_NAME": "RH",
			"OBS_VAR3_NAME":  "DPT",
		}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCheckFailed))
		assert.Contains(t, err.Error(), "2 issue(s)")

		var out struct {
			OK     bool `json:"ok"`
			Issues []struct {
				Index string `json:"index"`
			} `json:"issues"`
		}
		readJSON(t, cfg, &out)
		assert.False(t, out.OK)
		assert.Len(t, out.Issues, 2)
	})

	t.Run("skipped for reformatters", func(t *testing.T) {
		cfg := jsonConfig(t)
		store := planConfig(map[string]string{"PROCESS_LIST": "PCPCombine", "FCST_VAR2_NAME": "RH"})
		require.NoError(t, ExecuteCheck(context.Background(), cfg, store))
	})
}

func TestExecuteList(t *testing.T) {
	cfg := jsonConfig(t)
	require.NoError(t, ExecuteList(context.Background(), cfg, "a, begin_end_incr(1,3,1), fn(x,y)"))

	var items []string
	readJSON(t, cfg, &items)
	assert.Equal(t, []string{"a", "1", "2", "3", "fn(x,y)"}, items)

	cfg.NoExpand = true
	require.NoError(t, ExecuteList(context.Background(), cfg, "begin_end_incr(1,3,1)"))
	readJSON(t, cfg, &items)
	assert.Equal(t, []string{"begin_end_incr(1,3,1)"}, items)
}

func TestExecuteDuration(t *testing.T) {
	cfg := jsonConfig(t)
	cfg.DurationUnit = schema.UnitHours
	cfg.DurationAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ExecuteDuration(context.Background(), cfg, "1m"))

	var out struct {
		Canonical string `json:"canonical"`
		Total     int64  `json:"total_seconds"`
		Calendar  bool   `json:"calendar"`
	}
	readJSON(t, cfg, &out)
	assert.Equal(t, "1m", out.Canonical)
	assert.Equal(t, int64(29*86400), out.Total)
	assert.True(t, out.Calendar)

	// the clock time is the fallback reference
	cfg.DurationAt = time.Time{}
	require.NoError(t, ExecuteDuration(context.Background(), cfg, "1m"))
	readJSON(t, cfg, &out)
	assert.Equal(t, int64(31*86400), out.Total)

	require.NoError(t, ExecuteDuration(context.Background(), cfg, "36"))
	readJSON(t, cfg, &out)
	assert.Equal(t, "36H", out.Canonical)

	err := ExecuteDuration(context.Background(), cfg, "3 weeks")
	assert.True(t, errors.Is(err, schema.ErrConfigFormat))
}

func TestRecordPlan_Disabled(t *testing.T) {
	assert.NoError(t, recordPlan(nil, schema.Plan{}, &contract.Config{}, nil, time.Now()))

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(nil)
	assert.NoError(t, recordPlan(mgr, schema.Plan{}, &contract.Config{}, nil, time.Now()))
	mgr.AssertExpectations(t)
}

func TestRecordPlan_RecordFieldsError(t *testing.T) {
	plan, err := BuildPlan(context.Background(), planConfig(nil), PlanOptions{})
	require.NoError(t, err)

	store := &history.MockHistoryStore{}
	store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	store.On("RecordFields", int64(1), mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	mgr := &history.MockHistoryManager{}
	mgr.On("GetHistoryStore").Return(store)

	err = recordPlan(mgr, plan, &contract.Config{}, nil, time.Now())
	require.EqualError(t, err, "disk full")
	store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfigParams(t *testing.T) {
	params := configParams(&contract.Config{
		ConfigFiles: []string{"a.conf"},
		Overrides:   []string{"LEAD_SEQ=0"},
		Output:      schema.TextOut,
	}, nil)
	assert.Equal(t, []string{"a.conf"}, params["config_files"])
	assert.Equal(t, []string{"LEAD_SEQ=0"}, params["overrides"])
	assert.Equal(t, "text", params["output"])
	assert.NotContains(t, params, "clock_time")
}

func TestTickContext(t *testing.T) {
	assert.Nil(t, tickContext(&contract.Config{}))

	initTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ti := tickContext(&contract.Config{LeadInit: initTime, LeadValid: initTime.Add(time.Hour)})
	require.NotNil(t, ti)
	assert.Equal(t, initTime, ti.Init)
	assert.True(t, ti.Valid.IsZero())

	ti = tickContext(&contract.Config{LeadValid: initTime})
	require.NotNil(t, ti)
	assert.Equal(t, initTime, ti.Valid)
}
