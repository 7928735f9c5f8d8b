package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coffeebreak/internal/component"
	"coffeebreak/internal/config"
	"coffeebreak/internal/eventbus"
	"coffeebreak/internal/grouping"
)

const baseConfig = `
logging:
  level: error
  console: false
  file:
    enabled: false
    path: ""
plugins:
  schedule:
    enabled: %ENABLED%
    config:
      schedule:
        title: Main stage
        description: Day one
      grouping:
        enable_grouping: true
        time_threshold: 15
`

func writeConfig(t *testing.T, path string, enabled bool) {
	t.Helper()
	body := strings.Replace(baseConfig, "%ENABLED%", map[bool]string{true: "true", false: "false"}[enabled], 1)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestInitRegistersAndStopUnregisters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffeebreak.yaml")
	writeConfig(t, path, true)

	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := a.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok := a.Registry().Lookup(component.ScheduleName); !ok {
		t.Fatal("Schedule component not registered")
	}
	if err := a.health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	p, err := a.Schedule().Build(ctx, []grouping.Activity{
		{ID: "a", Title: "A", Start: start, End: start.Add(time.Hour)},
		{ID: "b", Title: "B", Start: start.Add(5 * time.Minute), End: start.Add(65 * time.Minute)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Groups) != 1 || p.Props.Title != "Main stage" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	if err := a.Stop(ctx, StopAppStop); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if names := a.Registry().Names(); len(names) != 0 {
		t.Fatalf("registry not empty after stop: %v", names)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffeebreak.yaml")
	body := strings.Replace(baseConfig, "time_threshold: 15", "time_threshold: 500", 1)
	body = strings.Replace(body, "%ENABLED%", "true", 1)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected config error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  config.Config
		ok   bool
	}{
		{"empty", config.Config{}, true},
		{"unknown plugin", config.Config{Plugins: map[string]config.PluginConfigRaw{"echo": {Enabled: true}}}, false},
		{"enabled without config", config.Config{Plugins: map[string]config.PluginConfigRaw{"schedule": {Enabled: true}}}, false},
		{"disabled without config", config.Config{Plugins: map[string]config.PluginConfigRaw{"schedule": {}}}, true},
		{"public bind without token", config.Config{Observability: &config.ObservabilityConfig{Enabled: true, Addr: "0.0.0.0:9464"}}, false},
		{"public bind with token", config.Config{Observability: &config.ObservabilityConfig{Enabled: true, Addr: "0.0.0.0:9464", Token: "t"}}, true},
		{"bad timeout", config.Config{Observability: &config.ObservabilityConfig{ReadTimeout: "fast"}}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := tc.cfg
			err := validate(&cfg)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMapObservabilityDefaults(t *testing.T) {
	t.Parallel()
	out, err := mapObservabilityConfig(&config.Config{Observability: &config.ObservabilityConfig{Enabled: true}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Addr != "127.0.0.1:9464" || out.PprofPrefix != "/debug/pprof/" || out.ReadTimeout != 5*time.Second || out.WriteTimeout != 0 {
		t.Fatalf("unexpected defaults: %+v", out)
	}
}

func TestReloadTogglesPlugin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffeebreak.yaml")
	writeConfig(t, path, true)

	a, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	events, unsub := a.Bus().Subscribe(16, eventbus.TopicComponentUnregistered, eventbus.TopicConfigApplied)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = a.Stop(context.Background(), StopAppStop) }()

	// Let the watcher register the directory before editing.
	time.Sleep(150 * time.Millisecond)
	writeConfig(t, path, false)

	deadline := time.After(5 * time.Second)
	var sawUnregister, sawApplied bool
	for !sawUnregister || !sawApplied {
		select {
		case e := <-events:
			switch e.Type {
			case eventbus.TopicComponentUnregistered:
				sawUnregister = true
			case eventbus.TopicConfigApplied:
				sawApplied = true
			}
		case <-deadline:
			t.Fatalf("reload not applied (unregistered=%v applied=%v)", sawUnregister, sawApplied)
		}
	}
	if _, ok := a.Registry().Lookup(component.ScheduleName); ok {
		t.Fatal("Schedule still registered after disable")
	}
	if err := a.health(ctx); err != nil {
		t.Fatalf("health after disable: %v", err)
	}
}
