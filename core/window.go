package core

import (
	"strings"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// Defaults for the outer time loop.
const (
	// DefaultIncrement is used when {MODE}_INCREMENT is unset.
	DefaultIncrement = "60"
	// IncrementDefaultUnit applies to a bare-integer {MODE}_INCREMENT.
	IncrementDefaultUnit = schema.UnitMinutes
	// MinIntervalSeconds is the smallest allowed loop interval.
	MinIntervalSeconds = 60
)

// ResolveLoopMode reads LOOP_BY, falling back to the older LOOP_BY_INIT flag.
func ResolveLoopMode(store contract.ConfigStore) (schema.LoopMode, error) {
	if loopBy, ok := store.GetRaw(contract.ConfigSection, "LOOP_BY"); ok {
		switch strings.ToLower(strings.TrimSpace(loopBy)) {
		case "init", "retro":
			return schema.LoopByInit, nil
		case "valid", "realtime":
			return schema.LoopByValid, nil
		}
	}

	if raw, ok := store.GetRaw(contract.ConfigSection, "LOOP_BY_INIT"); ok {
		if byInit, err := contract.ParseBoolString(raw); err == nil {
			if byInit {
				return schema.LoopByInit, nil
			}
			return schema.LoopByValid, nil
		}
	}

	return "", schema.NewResolveError(schema.ErrCodeLoopModeUndetermined, "MUST SET LOOP_BY to VALID, INIT, RETRO, or REALTIME")
}

// ResolveTimeWindow computes the start, end and interval of the outer time
// loop. {now} and {today} in _BEG and _END are filled from clock.
func ResolveTimeWindow(store contract.ConfigStore, clock time.Time) (schema.TimeWindow, error) {
	mode, err := ResolveLoopMode(store)
	if err != nil {
		return schema.TimeWindow{}, err
	}

	prefix := modePrefix(mode)
	format := store.GetString(contract.ConfigSection, prefix+"_TIME_FMT", "")
	begText, _ := store.GetRaw(contract.ConfigSection, prefix+"_BEG")
	endText := store.GetString(contract.ConfigSection, prefix+"_END", begText)
	incrText := store.GetString(contract.ConfigSection, prefix+"_INCREMENT", DefaultIncrement)

	interval, err := schema.ParseDuration(incrText, IncrementDefaultUnit)
	if err != nil {
		return schema.TimeWindow{}, schema.WrapResolveError(schema.ErrCodeInvalidDuration, err, "invalid %s_INCREMENT %q", prefix, incrText)
	}

	start, err := TimeObject(begText, format, clock)
	if err != nil {
		return schema.TimeWindow{}, schema.WrapResolveError(schema.ErrCodeInvalidTime, err, "Could not format start time")
	}
	end, err := TimeObject(endText, format, clock)
	if err != nil {
		return schema.TimeWindow{}, schema.WrapResolveError(schema.ErrCodeInvalidTime, err, "Could not format end time")
	}

	if interval.AddTo(start).Before(start.Add(MinIntervalSeconds * time.Second)) {
		return schema.TimeWindow{}, schema.NewResolveError(schema.ErrCodeIntervalTooSmall,
			"[INIT/VALID]_INCREMENT must be greater than or equal to %d seconds", MinIntervalSeconds)
	}
	if start.After(end) {
		return schema.TimeWindow{}, schema.NewResolveError(schema.ErrCodeStartAfterEnd, "Start time must come before end time")
	}

	return schema.TimeWindow{LoopBy: mode, Start: start, End: end, Interval: interval}, nil
}

// TimeObject fills {now} and {today} tags in text from clock and parses the
// result with the strftime format.
func TimeObject(text, format string, clock time.Time) (time.Time, error) {
	filled, err := contract.Substitute(text, schema.TimeInfo{Now: clock}, true)
	if err != nil {
		return time.Time{}, err
	}
	t, err := contract.ParseTime(format, strings.TrimSpace(filled))
	if err != nil {
		return time.Time{}, schema.WrapResolveError(schema.ErrCodeInvalidTime, err,
			"[INIT/VALID]_TIME_FMT (%s) does not match [INIT/VALID]_[BEG/END] (%s)", format, filled)
	}
	return t, nil
}

// ClockTime reads CLOCK_TIME, returning fallback when it is unset.
func ClockTime(store contract.ConfigStore, fallback time.Time) (time.Time, error) {
	raw, ok := store.GetRaw(contract.ConfigSection, "CLOCK_TIME")
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback.UTC(), nil
	}
	return contract.ParseTime(contract.ClockTimeFormat, strings.TrimSpace(raw))
}

func modePrefix(mode schema.LoopMode) string {
	if mode == schema.LoopByInit {
		return "INIT"
	}
	return "VALID"
}
