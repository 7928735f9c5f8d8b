package component

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // calendar zones must validate the same on hosts without a zoneinfo db

	"github.com/go-playground/validator/v10"
)

var (
	clockRe  = regexp.MustCompile(`^([01]\d|2[0-4]):[0-5]\d(:[0-5]\d)?$`)
	localeRe = regexp.MustCompile(`^[a-z]{2,3}(-[a-zA-Z]{2,4})?$`)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return clockRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("locale_tag", func(fl validator.FieldLevel) bool {
			return localeRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("calendar_tz", func(fl validator.FieldLevel) bool {
			return validTimeZone(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validTimeZone accepts FullCalendar's "local" and "UTC" plus any IANA name.
func validTimeZone(tz string) bool {
	switch tz {
	case "local", "UTC":
		return true
	case "":
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ValidationError maps JSON field names to a readable message.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Errors[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "clock":
			out[field] = fmt.Sprintf("%s must be a time of day (HH:MM or HH:MM:SS)", field)
		case "locale_tag":
			out[field] = fmt.Sprintf("%s must be a locale code like 'en' or 'pt-br'", field)
		case "calendar_tz":
			out[field] = fmt.Sprintf("%s must be 'local', 'UTC' or an IANA time zone", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &ValidationError{Errors: out}
}

// Validate checks Schedule props against the schema rules.
func Validate(s Schedule) error {
	if err := schemaValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return newValidationError(verrs)
		}
		return err
	}
	if clockSeconds(s.SlotMinTime) >= clockSeconds(s.SlotMaxTime) {
		return &ValidationError{Errors: map[string]string{
			"slotMaxTime": "slotMaxTime must be after slotMinTime",
		}}
	}
	if clockSeconds(s.SlotDuration) == 0 {
		return &ValidationError{Errors: map[string]string{
			"slotDuration": "slotDuration must be longer than zero",
		}}
	}
	return nil
}

// clockSeconds converts an already validated HH:MM[:SS] string to seconds.
func clockSeconds(s string) int {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		sec = 0
		_, _ = fmt.Sscanf(s, "%d:%d", &h, &m)
	}
	return h*3600 + m*60 + sec
}
