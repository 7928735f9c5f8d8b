package grouping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidConfig matches any *ConfigurationError.
	ErrInvalidConfig = errors.New("invalid grouping config")
	// ErrInvalidActivity matches any InvalidActivityError.
	ErrInvalidActivity = errors.New("invalid activity")
)

// FieldError describes a single out-of-range setting.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConfigurationError is returned before any grouping is attempted when one or
// more settings are outside their declared bounds.
type ConfigurationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ConfigurationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidConfig.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(parts, ", "))
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalidConfig }

func newConfigurationError(fields map[string]string) *ConfigurationError {
	out := &ConfigurationError{Fields: make([]FieldError, 0, len(fields))}
	for k, v := range fields {
		out.Fields = append(out.Fields, FieldError{Field: k, Message: v})
	}
	sort.Slice(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

// Reasons an activity can be excluded from grouping.
const (
	ReasonMissingID   = "missing_id"
	ReasonMissingTime = "missing_time"
	ReasonEndNotAfter = "end_not_after_start"
	ReasonDuplicateID = "duplicate_id"
)

// InvalidActivityError reports an activity excluded from a grouping pass.
// It is surfaced in Result.Invalid rather than failing the call.
type InvalidActivityError struct {
	Activity Activity `json:"activity"`
	Reason   string   `json:"reason"`
}

func (e InvalidActivityError) Error() string {
	id := e.Activity.ID
	if id == "" {
		id = "<empty>"
	}
	return fmt.Sprintf("%s %s: %s", ErrInvalidActivity, id, e.Reason)
}

func (e InvalidActivityError) Is(target error) bool { return target == ErrInvalidActivity }
