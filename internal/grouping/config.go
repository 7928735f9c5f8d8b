package grouping

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Declared bounds of the grouping settings form.
const (
	MinTimeThreshold    = 5
	MaxTimeThreshold    = 60
	MinMinGroupSize     = 2
	MaxMinGroupSize     = 10
	MinDurationVariance = 0.1
	MaxDurationVariance = 1.0
)

// Config tunes the grouping pass. Field names follow the settings form keys.
type Config struct {
	EnableGrouping bool `json:"enable_grouping" yaml:"enable_grouping"`
	// TimeThreshold is the maximum start offset from the anchor, in minutes.
	TimeThreshold int `json:"time_threshold" yaml:"time_threshold" validate:"min=5,max=60"`
	// MinGroupSize is the inclusive lower bound for a committed group.
	MinGroupSize int `json:"min_group_size" yaml:"min_group_size" validate:"min=2,max=10"`
	// DurationVariance is the allowed relative duration difference to the anchor.
	DurationVariance float64 `json:"duration_variance" yaml:"duration_variance" validate:"gte=0.1,lte=1"`
	GroupByType      bool    `json:"group_by_type" yaml:"group_by_type"`
}

// DefaultConfig returns the settings used when the host supplies none.
func DefaultConfig() Config {
	return Config{
		EnableGrouping:   false,
		TimeThreshold:    15,
		MinGroupSize:     2,
		DurationVariance: 0.5,
		GroupByType:      false,
	}
}

// Threshold returns TimeThreshold as a duration.
func (c Config) Threshold() time.Duration { return time.Duration(c.TimeThreshold) * time.Minute }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks every field against its declared bounds. The returned error,
// if any, is a *ConfigurationError naming all offending fields.
func (c Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ConfigurationError{Fields: []FieldError{{Field: "config", Message: err.Error()}}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = boundMessage(fe.Field())
	}
	return newConfigurationError(fields)
}

func boundMessage(field string) string {
	switch field {
	case "time_threshold":
		return fmt.Sprintf("must be between %d and %d minutes", MinTimeThreshold, MaxTimeThreshold)
	case "min_group_size":
		return fmt.Sprintf("must be between %d and %d", MinMinGroupSize, MaxMinGroupSize)
	case "duration_variance":
		return fmt.Sprintf("must be between %.1f and %.1f", MinDurationVariance, MaxDurationVariance)
	default:
		return "is invalid"
	}
}
