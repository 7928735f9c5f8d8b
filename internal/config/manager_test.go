package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleJSON = `{
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
  "observability": {"enabled": true, "addr": "127.0.0.1:0", "pprof": true},
  "plugins": {"schedule": {"enabled": true, "config": {"grouping": {"enable_grouping": true}}}}
}`

const sampleYAML = `
logging:
  level: info
  console: true
  file:
    enabled: false
    path: ""
plugins:
  schedule:
    enabled: true
    config:
      schema_version: 3
      schedule:
        title: Conference
        description: Main track
      grouping:
        enable_grouping: true
        time_threshold: 20
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, t.TempDir(), "coffeebreak.json", sampleJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Observability == nil || !cfg.Observability.Pprof {
		t.Fatalf("observability not decoded: %+v", cfg.Observability)
	}
	if p := cfg.Plugin("schedule"); !p.Enabled || len(p.Config) == 0 {
		t.Fatalf("schedule plugin not decoded: %+v", p)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Decode("coffeebreak.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := cfg.Plugin("schedule")
	if !p.Enabled {
		t.Fatal("schedule should be enabled")
	}
	if !strings.Contains(string(p.Config), `"time_threshold":20`) {
		t.Fatalf("nested plugin config lost: %s", p.Config)
	}
	if cfg.Observability != nil {
		t.Fatal("omitted observability should stay nil")
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		file string
		body string
	}{
		{"unknown top-level", "c.json", `{"logging":{},"plugins":{},"telegram":{}}`},
		{"unknown plugin key", "c.json", `{"plugins":{"schedule":{"enabled":true,"allow":["x"]}}}`},
		{"trailing data", "c.json", `{"plugins":{}} {"plugins":{}}`},
		{"bad yaml", "c.yml", "plugins: [unterminated"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tc.file, []byte(tc.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPluginOnNilConfig(t *testing.T) {
	t.Parallel()
	var c *Config
	if c.Plugin("schedule").Enabled {
		t.Fatal("nil config must report disabled")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("garbage accepted")
	}
	if d, _ := ParseDurationOrDefault("x", "", 3*time.Second); d != 3*time.Second {
		t.Fatalf("default not applied: %v", d)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg, err := Decode("a.json", []byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	newCfg, err := Decode("b.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	sections, attrs, plugins := SummarizeConfigChange(oldCfg, newCfg)
	want := []string{"logging", "observability", "plugins"}
	if strings.Join(sections, ",") != strings.Join(want, ",") {
		t.Fatalf("sections = %v, want %v", sections, want)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if len(plugins) != 1 || plugins[0] != "schedule" {
		t.Fatalf("plugins = %v", plugins)
	}

	sections, _, plugins = SummarizeConfigChange(newCfg, newCfg)
	if len(sections) != 0 || len(plugins) != 0 {
		t.Fatalf("identical configs reported changes: %v %v", sections, plugins)
	}
}

func TestDiffPluginsIgnoresFormatting(t *testing.T) {
	t.Parallel()
	a := map[string]PluginConfigRaw{"schedule": {Enabled: true, Config: []byte(`{"a":1,"b":2}`)}}
	b := map[string]PluginConfigRaw{"schedule": {Enabled: true, Config: []byte(`{ "b": 2, "a": 1 }`)}}
	if got := diffPlugins(a, b); len(got) != 0 {
		t.Fatalf("diffPlugins = %v, want none", got)
	}
}

func TestWatchPublishesValidatedChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "coffeebreak.json", sampleJSON)

	m := NewManager(path)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	m.SetValidator(func(ctx context.Context, cfg *Config) error {
		if cfg.Logging.Level == "bogus" {
			return errors.New("bad level")
		}
		return nil
	})
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "coffeebreak.json", strings.Replace(sampleJSON, `"debug"`, `"bogus"`, 1))
	select {
	case cfg := <-sub:
		t.Fatalf("rejected config was published: %+v", cfg.Logging)
	case <-time.After(300 * time.Millisecond):
	}
	if m.Get().Logging.Level != "debug" {
		t.Fatal("rejected config was committed")
	}

	writeFile(t, dir, "coffeebreak.json", strings.Replace(sampleJSON, `"debug"`, `"warn"`, 1))
	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "warn" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no publish after valid change")
	}
}
