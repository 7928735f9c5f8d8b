package component

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ScheduleName is the registry key of the Schedule component.
const ScheduleName = "Schedule"

// Schedule schema versions. Each plugin API revision only ever added optional
// fields, so older payloads migrate by filling defaults.
const (
	ScheduleV1 = 1 // title, description
	ScheduleV2 = 2 // event, display and i18n options
	ScheduleV3 = 3 // view and slot options

	ScheduleCurrent = ScheduleV3
)

// Schedule holds the props of a calendar focused on days and weeks.
// JSON names are the FullCalendar option names the client passes through.
type Schedule struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`

	AllDaySlot   bool `json:"allDaySlot"`
	NowIndicator bool `json:"nowIndicator"`

	ExpandRows bool `json:"expandRows"`

	Locale   string `json:"locale" validate:"required,locale_tag"`
	TimeZone string `json:"timeZone" validate:"required,calendar_tz"`

	InitialView  string `json:"initialView" validate:"oneof=timeGridDay timeGridWeek listDay listWeek"`
	SlotMinTime  string `json:"slotMinTime" validate:"clock"`
	SlotMaxTime  string `json:"slotMaxTime" validate:"clock"`
	SlotDuration string `json:"slotDuration" validate:"clock"`
	FirstDay     int    `json:"firstDay" validate:"min=0,max=6"`
	Weekends     bool   `json:"weekends"`
}

// Views accepted by initialView.
var scheduleViews = []string{"timeGridDay", "timeGridWeek", "listDay", "listWeek"}

var scheduleFields = []Field{
	{Name: "title", Kind: KindString, Required: true, Description: "Title of the schedule", Since: ScheduleV1},
	{Name: "description", Kind: KindString, Required: true, Description: "Description of the schedule", Since: ScheduleV1},

	{Name: "allDaySlot", Kind: KindBool, Default: false, Description: "Whether to show an 'all-day' slot at the top", Since: ScheduleV2},
	{Name: "nowIndicator", Kind: KindBool, Default: true, Description: "Whether to show a marker for the current time", Since: ScheduleV2},
	{Name: "expandRows", Kind: KindBool, Default: true, Description: "Whether to expand rows to fill the available height", Since: ScheduleV2},
	{Name: "locale", Kind: KindString, Default: "en", Description: "Calendar locale (e.g. 'en', 'pt-br', 'fr')", Since: ScheduleV2},
	{Name: "timeZone", Kind: KindString, Default: "local", Description: "Calendar timezone (e.g. 'local', 'UTC')", Since: ScheduleV2},

	{Name: "initialView", Kind: KindEnum, Default: "timeGridWeek", Options: scheduleViews, Description: "View shown when the calendar first loads", Since: ScheduleV3},
	{Name: "slotMinTime", Kind: KindString, Default: "08:00:00", Description: "First time slot shown for each day", Since: ScheduleV3},
	{Name: "slotMaxTime", Kind: KindString, Default: "20:00:00", Description: "Last time slot shown for each day (exclusive)", Since: ScheduleV3},
	{Name: "slotDuration", Kind: KindString, Default: "00:30:00", Description: "Length of each time slot", Since: ScheduleV3},
	{Name: "firstDay", Kind: KindInt, Default: 1, Min: bound(0), Max: bound(6), Description: "First day of the week (0 = Sunday)", Since: ScheduleV3},
	{Name: "weekends", Kind: KindBool, Default: true, Description: "Whether to include Saturday and Sunday", Since: ScheduleV3},
}

// ScheduleSchema returns the current Schedule schema.
func ScheduleSchema() Schema { return scheduleSchemaAt(ScheduleCurrent) }

// ScheduleSchemaAt returns the Schedule schema as it was at version v.
func ScheduleSchemaAt(v int) (Schema, error) {
	if v < ScheduleV1 || v > ScheduleCurrent {
		return Schema{}, fmt.Errorf("component: unknown %s schema version %d", ScheduleName, v)
	}
	return scheduleSchemaAt(v), nil
}

func scheduleSchemaAt(v int) Schema {
	fields := make([]Field, 0, len(scheduleFields))
	for _, f := range scheduleFields {
		if f.Since <= v {
			fields = append(fields, f)
		}
	}
	return Schema{
		Name:        ScheduleName,
		Version:     v,
		Description: "Configurable FullCalendar schedule focused on days and weeks rather than months",
		Fields:      fields,
	}
}

// DefaultSchedule returns a Schedule with every optional field at its default.
// Title and Description are left empty; they are required.
func DefaultSchedule() Schedule {
	return Schedule{
		AllDaySlot:   false,
		NowIndicator: true,
		ExpandRows:   true,
		Locale:       "en",
		TimeZone:     "local",
		InitialView:  "timeGridWeek",
		SlotMinTime:  "08:00:00",
		SlotMaxTime:  "20:00:00",
		SlotDuration: "00:30:00",
		FirstDay:     1,
		Weekends:     true,
	}
}

// DecodeSchedule decodes props written against schema version v and migrates
// them to the current version. Keys the version did not declare are rejected;
// fields introduced later take their defaults. A zero version means current.
func DecodeSchedule(raw json.RawMessage, v int) (Schedule, error) {
	if v == 0 {
		v = ScheduleCurrent
	}
	schema, err := ScheduleSchemaAt(v)
	if err != nil {
		return Schedule{}, err
	}
	out := DefaultSchedule()
	if len(bytes.TrimSpace(raw)) == 0 {
		if err := Validate(out); err != nil {
			return Schedule{}, err
		}
		return out, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Schedule{}, fmt.Errorf("component: decode %s props: %w", ScheduleName, err)
	}
	var unknown []string
	for k := range keys {
		if _, ok := schema.Field(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Schedule{}, fmt.Errorf("component: %s v%d does not declare %s", ScheduleName, v, strings.Join(unknown, ", "))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Schedule{}, fmt.Errorf("component: decode %s props: %w", ScheduleName, err)
	}
	if err := Validate(out); err != nil {
		return Schedule{}, err
	}
	return out, nil
}
