// Package schedule is the Schedule plugin: it contributes the Schedule
// component to the host registry and turns activities into a grouped
// calendar payload.
package schedule

import (
	"fmt"

	"coffeebreak/internal/component"
	"coffeebreak/internal/registry"
	logx "coffeebreak/pkg/logx"
)

// PluginName is the key of this plugin under the host config's plugins map.
const PluginName = "schedule"

// Plugin registers and unregisters the Schedule component.
type Plugin struct {
	log logx.Logger
}

func NewPlugin(log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Plugin{log: log.With(logx.String("plugin", PluginName))}
}

func (p *Plugin) Name() string { return PluginName }

// ComponentName implements registry.Component.
func (p *Plugin) ComponentName() string { return component.ScheduleName }

// Schema implements registry.Component.
func (p *Plugin) Schema() component.Schema { return component.ScheduleSchema() }

// Register adds the Schedule component to reg.
func (p *Plugin) Register(reg registry.Registry) error {
	if reg == nil {
		return fmt.Errorf("%s: nil registry", PluginName)
	}
	if err := reg.Register(p); err != nil {
		return fmt.Errorf("%s: register: %w", PluginName, err)
	}
	p.log.Debug("Schedule component registered.")
	return nil
}

// Unregister removes the Schedule component from reg by name.
func (p *Plugin) Unregister(reg registry.Registry) error {
	if reg == nil {
		return fmt.Errorf("%s: nil registry", PluginName)
	}
	if err := reg.Unregister(component.ScheduleName); err != nil {
		return fmt.Errorf("%s: unregister: %w", PluginName, err)
	}
	p.log.Debug("Schedule component unregistered.")
	return nil
}
