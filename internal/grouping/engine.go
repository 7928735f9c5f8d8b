// Package grouping clusters schedule activities that run in parallel.
//
// A pass is a pure function of (activities, config): it validates the config,
// screens out malformed activities, optionally buckets by activity type, and
// runs a greedy anchor sweep per bucket. Nothing is persisted between passes.
package grouping

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	logx "coffeebreak/pkg/logx"
)

// groupNamespace seeds deterministic group IDs (UUIDv5 over member IDs).
var groupNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("coffeebreak:schedule:group"))

// Engine runs grouping passes. The zero value is not usable; use New.
// An Engine holds no per-pass state and is safe for concurrent use.
type Engine struct {
	log         logx.Logger
	parallelism int
}

type Option func(*Engine)

func WithLogger(log logx.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithParallelism bounds how many type buckets are swept concurrently.
// Values <= 1 keep the pass sequential.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{parallelism: 1}
	for _, o := range opts {
		o(e)
	}
	if e.log.IsZero() {
		e.log = logx.Nop()
	}
	return e
}

type bucket struct {
	typ        string
	activities []Activity
}

type bucketResult struct {
	groups     []Group
	standalone []Activity
}

// Group partitions activities into parallel-session groups and standalone activities.
//
// An invalid config is rejected with a *ConfigurationError before anything else
// happens. Malformed activities never fail the call; they are reported in
// Result.Invalid. The only other error is ctx cancellation.
func (e *Engine) Group(ctx context.Context, activities []Activity, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	valid, invalid := screen(activities)
	res := Result{
		Groups:     []Group{},
		Standalone: []Activity{},
		Invalid:    invalid,
	}
	if len(valid) == 0 {
		return res, nil
	}
	if !cfg.EnableGrouping {
		res.Standalone = append(res.Standalone, valid...)
		return res, nil
	}

	start := time.Now()
	buckets := partition(valid, cfg.GroupByType)
	out := make([]bucketResult, len(buckets))

	if e.parallelism > 1 && len(buckets) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.parallelism)
		for i := range buckets {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = sweep(buckets[i], cfg)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	} else {
		for i := range buckets {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			out[i] = sweep(buckets[i], cfg)
		}
	}

	for _, br := range out {
		res.Groups = append(res.Groups, br.groups...)
		res.Standalone = append(res.Standalone, br.standalone...)
	}
	sort.SliceStable(res.Groups, func(i, j int) bool {
		a, b := res.Groups[i], res.Groups[j]
		if !a.Anchor.Equal(b.Anchor) {
			return a.Anchor.Before(b.Anchor)
		}
		return a.Activities[0].ID < b.Activities[0].ID
	})
	sortActivities(res.Standalone)

	e.log.Debug("grouping pass complete",
		logx.Int("activities", len(activities)),
		logx.Int("buckets", len(buckets)),
		logx.Int("groups", len(res.Groups)),
		logx.Int("grouped", res.Grouped()),
		logx.Int("standalone", len(res.Standalone)),
		logx.Int("invalid", len(res.Invalid)),
		logx.Duration("took", time.Since(start)),
	)
	return res, nil
}

// screen splits input into valid activities (input order kept) and rejects.
func screen(activities []Activity) ([]Activity, []InvalidActivityError) {
	valid := make([]Activity, 0, len(activities))
	var invalid []InvalidActivityError
	seen := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		reason := ""
		switch {
		case strings.TrimSpace(a.ID) == "":
			reason = ReasonMissingID
		case a.Start.IsZero() || a.End.IsZero():
			reason = ReasonMissingTime
		case !a.End.After(a.Start):
			reason = ReasonEndNotAfter
		}
		if reason == "" {
			if _, dup := seen[a.ID]; dup {
				reason = ReasonDuplicateID
			}
		}
		if reason != "" {
			invalid = append(invalid, InvalidActivityError{Activity: a, Reason: reason})
			continue
		}
		seen[a.ID] = struct{}{}
		valid = append(valid, a)
	}
	return valid, invalid
}

// partition buckets activities by type (sorted by type name) or returns a single bucket.
func partition(activities []Activity, byType bool) []bucket {
	if !byType {
		return []bucket{{activities: activities}}
	}
	idx := map[string]int{}
	var out []bucket
	for _, a := range activities {
		i, ok := idx[a.Type]
		if !ok {
			i = len(out)
			idx[a.Type] = i
			out = append(out, bucket{typ: a.Type})
		}
		out[i].activities = append(out[i].activities, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].typ < out[j].typ })
	return out
}

// sweep runs the greedy anchor sweep over one bucket.
//
// Membership is tested against the anchor only (start offset and duration),
// never against a running aggregate.
func sweep(b bucket, cfg Config) bucketResult {
	acts := append([]Activity(nil), b.activities...)
	sortActivities(acts)

	threshold := cfg.Threshold()
	assigned := make([]bool, len(acts))
	var res bucketResult

	for i := range acts {
		if assigned[i] {
			continue
		}
		anchor := acts[i]
		members := []int{i}
		for j := i + 1; j < len(acts); j++ {
			if assigned[j] {
				continue
			}
			// Sorted by start, so nothing further can be within the threshold.
			if acts[j].Start.Sub(anchor.Start) > threshold {
				break
			}
			if durationCompatible(anchor.Duration(), acts[j].Duration(), cfg.DurationVariance) {
				members = append(members, j)
			}
		}
		if len(members) < cfg.MinGroupSize {
			continue
		}

		g := Group{
			Anchor:     anchor.Start,
			Activities: make([]Activity, 0, len(members)),
		}
		if cfg.GroupByType {
			g.Type = b.typ
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			assigned[m] = true
			g.Activities = append(g.Activities, acts[m])
			ids = append(ids, acts[m].ID)
		}
		g.ID = groupID(ids)
		res.groups = append(res.groups, g)
	}

	for i, a := range acts {
		if !assigned[i] {
			res.standalone = append(res.standalone, a)
		}
	}
	return res
}

// durationCompatible reports |dur-anchor|/anchor <= variance.
// A zero-length anchor only matches another zero-length activity.
func durationCompatible(anchor, dur time.Duration, variance float64) bool {
	if anchor <= 0 {
		return dur == anchor
	}
	diff := dur - anchor
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(anchor) <= variance
}

func sortActivities(acts []Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		if !acts[i].Start.Equal(acts[j].Start) {
			return acts[i].Start.Before(acts[j].Start)
		}
		return acts[i].ID < acts[j].ID
	})
}

func groupID(memberIDs []string) string {
	return uuid.NewSHA1(groupNamespace, []byte(strings.Join(memberIDs, "\x00"))).String()
}
