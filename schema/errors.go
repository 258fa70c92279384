package schema

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// ErrorCode is a typed string for categorizing resolution failures.
// The prefix before the first underscore group names the failure kind.
type ErrorCode string

// Error codes produced by the resolvers.
const (
	// Unparseable duration, list, threshold or timestamp text.
	ErrCodeInvalidDuration  ErrorCode = "format_invalid_duration"
	ErrCodeInvalidListItem  ErrorCode = "format_invalid_list_item"
	ErrCodeInvalidThreshold ErrorCode = "format_invalid_threshold"
	ErrCodeInvalidTime      ErrorCode = "format_invalid_time"
	ErrCodeInvalidLeadItem  ErrorCode = "format_invalid_lead_item"
	ErrCodeMissingName      ErrorCode = "format_missing_field_name"
	ErrCodeUnknownTag       ErrorCode = "format_unknown_template_tag"
	ErrCodeInvalidDataType  ErrorCode = "format_invalid_data_type"
	ErrCodeInvalidSkipTime  ErrorCode = "format_invalid_skip_time"

	// Mutually exclusive settings used together.
	ErrCodeConflictingLeadSpec ErrorCode = "conflict_lead_specification"
	ErrCodeMissingGroupLabel   ErrorCode = "conflict_missing_group_label"
	ErrCodeBothWithTypedField  ErrorCode = "conflict_both_with_typed_field"

	// INIT_SEQ requirements.
	ErrCodeMissingLeadMax      ErrorCode = "bound_missing_lead_max"
	ErrCodeMissingValidContext ErrorCode = "bound_missing_valid_context"

	ErrCodeUnpairedField        ErrorCode = "field_unpaired"
	ErrCodeLevelCountMismatch   ErrorCode = "field_level_count_mismatch"
	ErrCodeLoopModeUndetermined ErrorCode = "window_loop_mode_undetermined"
	ErrCodeIntervalTooSmall     ErrorCode = "window_interval_too_small"
	ErrCodeStartAfterEnd        ErrorCode = "window_start_after_end"
)

// Failure kinds. Every ResolveError matches exactly one of these through errors.Is.
var (
	ErrConfigFormat              = errors.New("configuration format error")
	ErrConflictingSpecification  = errors.New("conflicting specification")
	ErrMissingRequiredBound      = errors.New("missing required bound")
	ErrUnpairedFieldSpec         = errors.New("unpaired field specification")
	ErrLevelCountMismatch        = errors.New("level count mismatch")
	ErrLoopModeUndetermined      = errors.New("loop mode undetermined")
	ErrIntervalTooSmall          = errors.New("interval too small")
	ErrStartAfterEnd             = errors.New("start after end")
	errUnknownResolutionCategory = errors.New("resolution failed")
)

// Kind maps an ErrorCode to its failure kind sentinel.
func (c ErrorCode) Kind() error {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "format_"):
		return ErrConfigFormat
	case strings.HasPrefix(s, "conflict_"):
		return ErrConflictingSpecification
	case strings.HasPrefix(s, "bound_"):
		return ErrMissingRequiredBound
	case c == ErrCodeUnpairedField:
		return ErrUnpairedFieldSpec
	case c == ErrCodeLevelCountMismatch:
		return ErrLevelCountMismatch
	case c == ErrCodeLoopModeUndetermined:
		return ErrLoopModeUndetermined
	case c == ErrCodeIntervalTooSmall:
		return ErrIntervalTooSmall
	case c == ErrCodeStartAfterEnd:
		return ErrStartAfterEnd
	default:
		return errUnknownResolutionCategory
	}
}

// ResolveError is returned by every resolver when resolution fails.
// Details carries auxiliary diagnostics such as suggested config rewrites.
type ResolveError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the failure kind of this error.
func (e *ResolveError) Is(target error) bool {
	return target == e.Code.Kind()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *ResolveError) WithDetails(details map[string]any) *ResolveError {
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	return &ResolveError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewResolveError creates a ResolveError with a formatted message.
func NewResolveError(code ErrorCode, format string, args ...any) *ResolveError {
	return &ResolveError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapResolveError creates a ResolveError around an underlying error.
func WrapResolveError(code ErrorCode, err error, format string, args ...any) *ResolveError {
	return &ResolveError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the ErrorCode of the first ResolveError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// SuggestedRewrites returns the "suggested_rewrites" detail of a ResolveError, if any.
func SuggestedRewrites(err error) []string {
	var re *ResolveError
	if !errors.As(err, &re) {
		return nil
	}
	rewrites, _ := re.Details["suggested_rewrites"].([]string)
	return rewrites
}
