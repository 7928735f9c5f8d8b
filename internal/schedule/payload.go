package schedule

import (
	"sort"
	"time"

	"coffeebreak/internal/component"
	"coffeebreak/internal/grouping"
)

// Payload is what the client receives to render a Schedule component.
type Payload struct {
	Component string             `json:"component"`
	Version   int                `json:"version"`
	Props     component.Schedule `json:"props"`
	Events    []Event            `json:"events"`
	Groups    []GroupView        `json:"groups"`
	Invalid   []InvalidView      `json:"invalid,omitempty"`
}

// Event is a FullCalendar event object.
type Event struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end"`
	GroupID       string        `json:"groupId,omitempty"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

type ExtendedProps struct {
	Type    string `json:"type,omitempty"`
	Grouped bool   `json:"grouped"`
}

type GroupView struct {
	ID          string   `json:"id"`
	Anchor      string   `json:"anchor"`
	Type        string   `json:"type,omitempty"`
	Size        int      `json:"size"`
	ActivityIDs []string `json:"activityIds"`
}

type InvalidView struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// NewPayload translates a grouping result into the client payload. Events are
// ordered by (start, id) so the output is stable across passes.
func NewPayload(props component.Schedule, res grouping.Result) Payload {
	p := Payload{
		Component: component.ScheduleName,
		Version:   component.ScheduleCurrent,
		Props:     props,
		Events:    make([]Event, 0, res.Grouped()+len(res.Standalone)),
		Groups:    make([]GroupView, 0, len(res.Groups)),
	}

	type placed struct {
		a     grouping.Activity
		group string
	}
	all := make([]placed, 0, cap(p.Events))
	for _, g := range res.Groups {
		ids := make([]string, 0, len(g.Activities))
		for _, a := range g.Activities {
			ids = append(ids, a.ID)
			all = append(all, placed{a: a, group: g.ID})
		}
		p.Groups = append(p.Groups, GroupView{
			ID:          g.ID,
			Anchor:      formatTime(g.Anchor),
			Type:        g.Type,
			Size:        g.Size(),
			ActivityIDs: ids,
		})
	}
	for _, a := range res.Standalone {
		all = append(all, placed{a: a})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].a.Start.Equal(all[j].a.Start) {
			return all[i].a.Start.Before(all[j].a.Start)
		}
		return all[i].a.ID < all[j].a.ID
	})
	for _, x := range all {
		p.Events = append(p.Events, Event{
			ID:      x.a.ID,
			Title:   x.a.Title,
			Start:   formatTime(x.a.Start),
			End:     formatTime(x.a.End),
			GroupID: x.group,
			ExtendedProps: ExtendedProps{
				Type:    x.a.Type,
				Grouped: x.group != "",
			},
		})
	}

	for _, inv := range res.Invalid {
		p.Invalid = append(p.Invalid, InvalidView{ID: inv.Activity.ID, Title: inv.Activity.Title, Reason: inv.Reason})
	}
	return p
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
