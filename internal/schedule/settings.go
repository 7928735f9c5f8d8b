package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"coffeebreak/internal/component"
	"coffeebreak/internal/grouping"
)

const (
	DefaultCacheSize = 128
	MaxCacheSize     = 4096
)

// Settings is the decoded per-plugin config.
//
// Example (YAML):
//
//	plugins:
//	  schedule:
//	    enabled: true
//	    config:
//	      schema_version: 3
//	      schedule: {title: "Main stage", description: "Day one"}
//	      grouping: {enable_grouping: true, time_threshold: 20}
//	      cache_size: 64
type Settings struct {
	// SchemaVersion is the Schedule schema version the props were written for.
	SchemaVersion int                `json:"schema_version"`
	Schedule      component.Schedule `json:"schedule"`
	Grouping      grouping.Config    `json:"grouping"`
	// CacheSize bounds the number of cached grouping results; 0 disables caching.
	CacheSize int `json:"cache_size"`
}

type rawSettings struct {
	SchemaVersion int             `json:"schema_version"`
	Schedule      json.RawMessage `json:"schedule"`
	Grouping      json.RawMessage `json:"grouping"`
	CacheSize     *int            `json:"cache_size"`
}

// DecodeSettings decodes raw plugin config, fills defaults and validates
// every section. Props written against an older schema version are migrated.
func DecodeSettings(raw json.RawMessage) (Settings, error) {
	r, err := decodeStrict[rawSettings](raw)
	if err != nil {
		return Settings{}, fmt.Errorf("schedule: decode settings: %w", err)
	}

	out := Settings{
		SchemaVersion: component.ScheduleCurrent,
		Grouping:      grouping.DefaultConfig(),
		CacheSize:     DefaultCacheSize,
	}

	out.Schedule, err = component.DecodeSchedule(r.Schedule, r.SchemaVersion)
	if err != nil {
		return Settings{}, fmt.Errorf("schedule: props: %w", err)
	}

	if len(bytes.TrimSpace(r.Grouping)) > 0 {
		if err := decodeInto(r.Grouping, &out.Grouping); err != nil {
			return Settings{}, fmt.Errorf("schedule: decode grouping: %w", err)
		}
	}
	if err := out.Grouping.Validate(); err != nil {
		return Settings{}, fmt.Errorf("schedule: grouping: %w", err)
	}

	if r.CacheSize != nil {
		if *r.CacheSize < 0 || *r.CacheSize > MaxCacheSize {
			return Settings{}, fmt.Errorf("schedule: cache_size must be between 0 and %d", MaxCacheSize)
		}
		out.CacheSize = *r.CacheSize
	}
	return out, nil
}

// decodeStrict decodes per-plugin raw JSON into T, rejecting unknown keys.
// Empty input yields the zero value.
func decodeStrict[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	err := decodeInto(raw, &out)
	return out, err
}

func decodeInto(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after object")
	}
	return nil
}
