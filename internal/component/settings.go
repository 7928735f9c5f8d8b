package component

import "coffeebreak/internal/grouping"

// GroupingFormName is the settings form key the host stores values under.
const GroupingFormName = "schedule.grouping"

// GroupingSettingsForm describes the automatic activity grouping settings.
// Bounds and defaults are the ones grouping.Config.Validate enforces.
func GroupingSettingsForm() Schema {
	def := grouping.DefaultConfig()
	return Schema{
		Name:        GroupingFormName,
		Version:     1,
		Description: "Automatically group activities that run in parallel",
		Fields: []Field{
			{
				Name:        "enable_grouping",
				Kind:        KindBool,
				Default:     def.EnableGrouping,
				Description: "Group activities that start at about the same time",
			},
			{
				Name:        "time_threshold",
				Kind:        KindInt,
				Default:     def.TimeThreshold,
				Min:         bound(grouping.MinTimeThreshold),
				Max:         bound(grouping.MaxTimeThreshold),
				Description: "Maximum difference in start time, in minutes",
			},
			{
				Name:        "min_group_size",
				Kind:        KindInt,
				Default:     def.MinGroupSize,
				Min:         bound(grouping.MinMinGroupSize),
				Max:         bound(grouping.MaxMinGroupSize),
				Description: "Minimum number of activities to form a group",
			},
			{
				Name:        "duration_variance",
				Kind:        KindNumber,
				Default:     def.DurationVariance,
				Min:         bound(grouping.MinDurationVariance),
				Max:         bound(grouping.MaxDurationVariance),
				Description: "Allowed difference in duration, as a fraction of the first activity",
			},
			{
				Name:        "group_by_type",
				Kind:        KindBool,
				Default:     def.GroupByType,
				Description: "Only group activities of the same type",
			},
		},
	}
}
