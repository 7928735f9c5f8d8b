package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"coffeebreak/internal/eventbus"
	"coffeebreak/internal/grouping"
	"coffeebreak/internal/observability"
	logx "coffeebreak/pkg/logx"
)

// ErrNotConfigured is returned by Build before the first successful Apply.
var ErrNotConfigured = errors.New("schedule: settings not applied")

// Service builds Schedule payloads under the currently applied settings.
// Settings can be swapped at any time; passes in flight keep the snapshot
// they started with.
type Service struct {
	engine  *grouping.Engine
	log     logx.Logger
	metrics *observability.Metrics
	bus     eventbus.Bus
	warn    *rate.Limiter

	applyMu sync.Mutex
	state   atomic.Pointer[serviceState]
}

type serviceState struct {
	settings Settings
	cache    *resultCache
}

type ServiceOption func(*Service)

func WithServiceLogger(log logx.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithEventBus publishes schedule.grouped after every Build.
func WithEventBus(bus eventbus.Bus) ServiceOption {
	return func(s *Service) { s.bus = bus }
}

func WithEngine(e *grouping.Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// WithInvalidWarnRate limits "activities excluded" warnings to perSec with
// the given burst. Excess warnings are dropped, not queued.
func WithInvalidWarnRate(perSec float64, burst int) ServiceOption {
	return func(s *Service) { s.warn = rate.NewLimiter(rate.Limit(perSec), burst) }
}

func NewService(opts ...ServiceOption) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	s.log = s.log.With(logx.String("plugin", PluginName))
	if s.engine == nil {
		s.engine = grouping.New(grouping.WithLogger(s.log), grouping.WithParallelism(4))
	}
	if s.warn == nil {
		s.warn = rate.NewLimiter(rate.Every(10*time.Second), 3)
	}
	return s
}

// Apply installs st. The result cache is rebuilt when its size changes and
// purged when grouping settings change.
func (s *Service) Apply(st Settings) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	prev := s.state.Load()
	next := &serviceState{settings: st}
	switch {
	case prev != nil && prev.settings.CacheSize == st.CacheSize:
		next.cache = prev.cache
		if prev.settings.Grouping != st.Grouping {
			next.cache.Purge()
		}
	default:
		c, err := newResultCache(st.CacheSize)
		if err != nil {
			return fmt.Errorf("schedule: cache: %w", err)
		}
		next.cache = c
	}
	s.state.Store(next)

	s.log.Debug("schedule settings applied",
		logx.Bool("grouping.enabled", st.Grouping.EnableGrouping),
		logx.Int("grouping.time_threshold", st.Grouping.TimeThreshold),
		logx.Int("grouping.min_group_size", st.Grouping.MinGroupSize),
		logx.Float64("grouping.duration_variance", st.Grouping.DurationVariance),
		logx.Bool("grouping.by_type", st.Grouping.GroupByType),
		logx.Int("cache_size", st.CacheSize),
	)
	return nil
}

// Settings returns the applied settings and whether any were applied.
func (s *Service) Settings() (Settings, bool) {
	st := s.state.Load()
	if st == nil {
		return Settings{}, false
	}
	return st.settings, true
}

// Build groups activities and returns the client payload. Invalid activities
// are reported in the payload, never as an error. Errors are limited to
// configuration problems and ctx cancellation.
func (s *Service) Build(ctx context.Context, activities []grouping.Activity) (Payload, error) {
	st := s.state.Load()
	if st == nil {
		return Payload{}, ErrNotConfigured
	}
	cfg := st.settings.Grouping

	started := time.Now()
	var key uint64
	if st.cache != nil {
		key = passKey(activities, cfg)
	}
	res, cached := st.cache.Get(key)
	if st.cache != nil {
		s.metrics.RecordCache(cached)
	}

	if !cached {
		var err error
		res, err = s.engine.Group(ctx, activities, cfg)
		took := time.Since(started)
		if err != nil {
			result := observability.PassConfigError
			if ctx.Err() != nil {
				result = observability.PassCanceled
			}
			s.metrics.RecordPass(result, 0, 0, 0, 0, took)
			return Payload{}, err
		}
		s.metrics.RecordPass(observability.PassOK, len(res.Groups), res.Grouped(), len(res.Standalone), len(res.Invalid), took)
		st.cache.Add(key, res)
	}

	if len(res.Invalid) > 0 && s.warn.Allow() {
		s.log.Warn("activities excluded from grouping",
			logx.Int("count", len(res.Invalid)),
			logx.Strings("reasons", invalidReasons(res.Invalid)),
		)
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TopicScheduleGrouped, Data: eventbus.GroupedEvent{
			Activities: len(activities),
			Groups:     len(res.Groups),
			Standalone: len(res.Standalone),
			Invalid:    len(res.Invalid),
			Cached:     cached,
			TookMS:     time.Since(started).Milliseconds(),
		}})
	}

	return NewPayload(st.settings.Schedule, res), nil
}

// invalidReasons returns the distinct reasons in first-seen order.
func invalidReasons(inv []grouping.InvalidActivityError) []string {
	seen := make(map[string]struct{}, 4)
	out := make([]string, 0, 4)
	for _, e := range inv {
		if _, ok := seen[e.Reason]; ok {
			continue
		}
		seen[e.Reason] = struct{}{}
		out = append(out, e.Reason)
	}
	return out
}
