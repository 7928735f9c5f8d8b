package config

import (
	"sort"
	"strings"

	logx "coffeebreak/pkg/logx"
)

// SummarizeConfigChange returns the changed section names, log-safe attrs
// (tokens are never included) and the names of plugins whose enable flag or
// config changed.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 3)
	attrs := make([]logx.Field, 0, 12)

	ol, nl := oldCfg.Logging, newCfg.Logging
	if !strings.EqualFold(strings.TrimSpace(ol.Level), strings.TrimSpace(nl.Level)) ||
		ol.Console != nl.Console ||
		strings.TrimSpace(ol.Format) != strings.TrimSpace(nl.Format) ||
		ol.File.Enabled != nl.File.Enabled ||
		strings.TrimSpace(ol.File.Path) != strings.TrimSpace(nl.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", nl.Level),
			logx.Bool("logging.console", nl.Console),
			logx.String("logging.format", nl.Format),
			logx.Bool("logging.file_enabled", nl.File.Enabled),
		)
	}

	// Nil means disabled.
	oo, no := derefObservability(oldCfg.Observability), derefObservability(newCfg.Observability)
	if oo.Enabled != no.Enabled ||
		strings.TrimSpace(oo.Addr) != strings.TrimSpace(no.Addr) ||
		oo.Pprof != no.Pprof ||
		strings.TrimSpace(oo.PprofPrefix) != strings.TrimSpace(no.PprofPrefix) ||
		oo.AllowInsecure != no.AllowInsecure ||
		strings.TrimSpace(oo.ReadTimeout) != strings.TrimSpace(no.ReadTimeout) ||
		strings.TrimSpace(oo.WriteTimeout) != strings.TrimSpace(no.WriteTimeout) ||
		strings.TrimSpace(oo.IdleTimeout) != strings.TrimSpace(no.IdleTimeout) ||
		oo.Token != no.Token {
		changed = append(changed, "observability")
		attrs = append(attrs,
			logx.Bool("observability.enabled", no.Enabled),
			logx.String("observability.addr", strings.TrimSpace(no.Addr)),
			logx.Bool("observability.pprof", no.Pprof),
			logx.Bool("observability.token_set", strings.TrimSpace(no.Token) != ""),
			logx.Bool("observability.allow_insecure", no.AllowInsecure),
		)
	}

	pluginChanged := diffPlugins(oldCfg.Plugins, newCfg.Plugins)
	if len(pluginChanged) > 0 {
		changed = append(changed, "plugins")
		attrs = append(attrs,
			logx.Int("plugins.changed_count", len(pluginChanged)),
			logx.Int("plugins.enabled_count", countEnabled(newCfg.Plugins)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, pluginChanged
}

func derefObservability(o *ObservabilityConfig) ObservabilityConfig {
	if o == nil {
		return ObservabilityConfig{}
	}
	return *o
}

func countEnabled(m map[string]PluginConfigRaw) int {
	n := 0
	for _, v := range m {
		if v.Enabled {
			n++
		}
	}
	return n
}

func diffPlugins(oldM, newM map[string]PluginConfigRaw) []string {
	set := make(map[string]struct{}, len(oldM)+len(newM))
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, n := oldM[name], newM[name]
		if o.Enabled != n.Enabled || canonicalHashJSON(o.Config) != canonicalHashJSON(n.Config) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
