// Package app wires the host side of coffeebreak: config, logging, the
// component registry, observability and the Schedule plugin.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"coffeebreak/internal/config"
	"coffeebreak/internal/eventbus"
	"coffeebreak/internal/observability"
	"coffeebreak/internal/registry"
	rtsup "coffeebreak/internal/runtime/supervisor"
	"coffeebreak/internal/schedule"
	logx "coffeebreak/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	reg  *registry.Memory

	prom    *prometheus.Registry
	metrics *observability.Metrics
	server  *observability.Server

	plugin *schedule.Plugin
	svc    *schedule.Service

	mu         sync.Mutex
	registered bool
	wantPlugin bool
}

// New loads cfgPath and builds every component. Nothing runs until Init or Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, root := logx.NewService(mapLoggingConfig(cfg))
	log := root.With(logx.String("comp", "core"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	bus := eventbus.New()
	prom := observability.NewRegistry()
	metrics := observability.NewMetrics(prom)

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		reg:     registry.NewMemory(registry.WithLogger(root.With(logx.String("comp", "registry"))), registry.WithBus(bus)),
		prom:    prom,
		metrics: metrics,
		plugin:  schedule.NewPlugin(root),
		svc: schedule.NewService(
			schedule.WithServiceLogger(root),
			schedule.WithMetrics(metrics),
			schedule.WithEventBus(bus),
		),
	}

	srvCfg, err := mapObservabilityConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.server = observability.NewServer(srvCfg, prom, a.health, root)

	st, enabled, ok, err := mapScheduleSettings(cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := a.svc.Apply(st); err != nil {
			return nil, err
		}
	}
	a.wantPlugin = enabled
	return a, nil
}

func (a *App) Logger() logx.Logger           { return a.log }
func (a *App) Bus() eventbus.Bus             { return a.bus }
func (a *App) Registry() registry.Registry   { return a.reg }
func (a *App) Schedule() *schedule.Service   { return a.svc }
func (a *App) Gatherer() prometheus.Gatherer { return a.prom }

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Init registers the plugin when the config enables it. It starts nothing
// in the background; one-shot runs stop here.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	want := a.wantPlugin
	a.mu.Unlock()
	return a.setPluginEnabled(want)
}

// Start runs Init, then the observability server, the event log and hot reload.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	a.server.Start(a.sup.Context())

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case next, ok := <-sub:
				if !ok {
					return nil
				}
				next = drainLatest(sub, next)
				a.applyConfig(c, last, next)
				last = next
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started", logx.String("config", a.cfgm.Path()), logx.Bool("schedule", a.isRegistered()))
	return nil
}

// drainLatest coalesces a burst of reloads into the newest one.
func drainLatest(sub chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer := <-sub:
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs, pluginChanged := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)

	a.logs.Apply(mapLoggingConfig(next))

	if srvCfg, err := mapObservabilityConfig(next); err != nil {
		a.log.Warn("invalid observability config; keeping previous", logx.Err(err))
	} else {
		a.server.Reconfigure(ctx, srvCfg)
	}

	if len(pluginChanged) > 0 {
		st, enabled, ok, err := mapScheduleSettings(next)
		switch {
		case err != nil:
			a.log.Warn("invalid schedule settings; keeping previous", logx.Err(err))
		default:
			if ok {
				if err := a.svc.Apply(st); err != nil {
					a.log.Warn("schedule settings not applied", logx.Err(err))
				}
			}
			a.mu.Lock()
			a.wantPlugin = enabled
			a.mu.Unlock()
			if err := a.setPluginEnabled(enabled); err != nil {
				a.log.Warn("schedule plugin toggle failed", logx.Err(err))
			}
		}
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.TopicConfigApplied, Data: sections})
	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)
}

// setPluginEnabled registers or unregisters the Schedule component so the
// registry matches enabled. Enabling without applied settings is an error.
func (a *App) setPluginEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if enabled == a.registered {
		return nil
	}
	if enabled {
		if _, ok := a.svc.Settings(); !ok {
			return schedule.ErrNotConfigured
		}
		if err := a.plugin.Register(a.reg); err != nil {
			return err
		}
	} else if err := a.plugin.Unregister(a.reg); err != nil && !errors.Is(err, registry.ErrNotRegistered) {
		return err
	}
	a.registered = enabled
	a.metrics.ComponentRegistered(enabled)
	a.log.Info("schedule plugin state changed", logx.Bool("registered", enabled))
	return nil
}

func (a *App) isRegistered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registered
}

func (a *App) health(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.wantPlugin && !a.registered {
		return errors.New("schedule plugin enabled but not registered")
	}
	return nil
}

// Stop unregisters the plugin, stops background work and closes logging.
// Each step is bounded so one component cannot stall shutdown.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.sup != nil {
		a.sup.Cancel()
	}

	a.step(ctx, "plugin", time.Second, func(context.Context) error { return a.setPluginEnabled(false) })
	a.step(ctx, "observability", time.Second, func(c context.Context) error { a.server.Stop(c); return nil })
	if a.sup != nil {
		a.step(ctx, "supervisor", 2*time.Second, a.sup.Wait)
	}

	a.log.Info("stopped")
	return a.logs.Close()
}

func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	// Respect the caller's deadline; never extend it.
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
		max = time.Until(dl)
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
