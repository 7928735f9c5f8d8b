package app

import (
	"fmt"
	"net"
	"strings"
	"time"

	"coffeebreak/internal/config"
	"coffeebreak/internal/observability"
	"coffeebreak/internal/schedule"
	logx "coffeebreak/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		Format:  cfg.Logging.Format,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// mapObservabilityConfig validates and converts the observability section.
// It never starts the server.
func mapObservabilityConfig(cfg *config.Config) (observability.ServerConfig, error) {
	var out observability.ServerConfig
	if cfg == nil || cfg.Observability == nil {
		return out, nil
	}
	oc := cfg.Observability

	out.Enabled = oc.Enabled
	out.Pprof = oc.Pprof
	out.AllowInsecure = oc.AllowInsecure
	out.Token = strings.TrimSpace(oc.Token)
	out.Addr = strings.TrimSpace(oc.Addr)
	out.PprofPrefix = strings.TrimSpace(oc.PprofPrefix)
	if out.Addr == "" {
		out.Addr = "127.0.0.1:9464"
	}
	if out.PprofPrefix == "" {
		out.PprofPrefix = "/debug/pprof/"
	}

	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("observability.read_timeout", oc.ReadTimeout, 5*time.Second); err != nil {
		return out, err
	}
	// 0 keeps long pprof captures working.
	if out.WriteTimeout, err = config.ParseDurationField("observability.write_timeout", oc.WriteTimeout); err != nil {
		return out, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("observability.idle_timeout", oc.IdleTimeout, 120*time.Second); err != nil {
		return out, err
	}

	if out.Enabled {
		if _, _, err := net.SplitHostPort(out.Addr); err != nil {
			return out, fmt.Errorf("observability.addr: invalid %q (expected host:port): %w", out.Addr, err)
		}
		if !out.AllowInsecure && out.Token == "" && !observability.IsLoopbackAddr(out.Addr) {
			return out, fmt.Errorf("observability: binding to non-loopback addr requires token or allow_insecure=true")
		}
	}
	return out, nil
}

// mapScheduleSettings decodes plugins.schedule. A disabled entry without a
// config block yields ok=false and no error; a present config block is
// always validated so a bad edit is caught before the plugin is re-enabled.
func mapScheduleSettings(cfg *config.Config) (st schedule.Settings, enabled, ok bool, err error) {
	pc := cfg.Plugin(schedule.PluginName)
	if len(pc.Config) == 0 {
		if pc.Enabled {
			return st, true, false, fmt.Errorf("plugins.%s.config is required when enabled", schedule.PluginName)
		}
		return st, false, false, nil
	}
	st, err = schedule.DecodeSettings(pc.Config)
	if err != nil {
		return st, pc.Enabled, false, fmt.Errorf("plugins.%s: %w", schedule.PluginName, err)
	}
	return st, pc.Enabled, true, nil
}

// validate is the config manager's reload hook.
func validate(cfg *config.Config) error {
	if _, err := mapObservabilityConfig(cfg); err != nil {
		return err
	}
	for name := range cfg.Plugins {
		if name != schedule.PluginName {
			return fmt.Errorf("plugins.%s: unknown plugin", name)
		}
	}
	_, _, _, err := mapScheduleSettings(cfg)
	return err
}
