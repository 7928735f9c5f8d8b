package grouping

import "time"

// Activity is a single scheduled session supplied by the host.
type Activity struct {
	ID    string    `json:"id" yaml:"id"`
	Title string    `json:"title" yaml:"title"`
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Type  string    `json:"type,omitempty" yaml:"type,omitempty"`
}

// Duration returns End - Start.
func (a Activity) Duration() time.Duration { return a.End.Sub(a.Start) }

// Group is a cluster of activities judged to run in parallel.
// Groups are recomputed on every pass and never mutated after being returned.
type Group struct {
	ID string `json:"id"`
	// Anchor is the earliest start time among the members.
	Anchor time.Time `json:"anchor"`
	// Type is the shared activity type when grouping by type, empty otherwise.
	Type       string     `json:"type,omitempty"`
	Activities []Activity `json:"activities"`
}

// Size returns the number of members.
func (g Group) Size() int { return len(g.Activities) }

// Result is the partition produced by one grouping pass.
//
// Every input activity appears exactly once across Groups, Standalone and Invalid.
type Result struct {
	Groups     []Group                `json:"groups"`
	Standalone []Activity             `json:"standalone"`
	Invalid    []InvalidActivityError `json:"invalid,omitempty"`
}

// Grouped returns the number of activities placed in committed groups.
func (r Result) Grouped() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Activities)
	}
	return n
}
