// Package worker keeps the snapshot cache warm for the registry cities.
package worker

import (
	"sort"
	"time"

	"github.com/aqoutlook/aqoutlook/internal/city"
)

// RefreshTarget is a city whose snapshot is refreshed on every run.
type RefreshTarget struct {
	// City is the registry key.
	City string

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the cache refresh job.
type RefreshConfig struct {
	// Targets are the cities to refresh. Must not be empty.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout bounds each city refresh.
	// Default: 45 seconds
	Timeout time.Duration

	// Interval is the period of the scheduled loop.
	// Default: 5 minutes
	Interval time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration without targets.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency: 3,
		Timeout:     45 * time.Second,
		Interval:    5 * time.Minute,
	}
}

// TargetsFor builds refresh targets for every registry city.
// The default city is refreshed first.
func TargetsFor(reg *city.Registry) []RefreshTarget {
	def := reg.Default().Key
	all := reg.All()

	targets := make([]RefreshTarget, 0, len(all))
	for _, c := range all {
		priority := 2
		if c.Key == def {
			priority = 1
		}
		targets = append(targets, RefreshTarget{City: c.Key, Priority: priority})
	}
	return targets
}

// Ordered returns the targets sorted by priority, keeping registration order
// within a priority.
func (c RefreshConfig) Ordered() []RefreshTarget {
	out := make([]RefreshTarget, len(c.Targets))
	copy(out, c.Targets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}
