// Package cache persists the provider selection report between runs.
// Supports both local file and Redis backends so several instances can share one report.
package cache

import (
	"context"
	"time"

	"modelwire/internal/core"
)

// ReportVersion is bumped when the Report layout changes incompatibly.
const ReportVersion = 1

// Report is the stored outcome of one bean graph build.
type Report struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	// Providers lists every registered provider type, sorted.
	Providers  []string         `json:"providers"`
	Selections []core.Selection `json:"selections"`
}

// Change describes a selection whose provider differs from the previous report.
type Change struct {
	Key      core.SelectionKey
	Previous string
	Current  string
}

// Diff returns the selections of next whose provider changed since prev, in next's order.
// Keys absent from prev are not reported.
func Diff(prev, next *Report) []Change {
	if prev == nil || next == nil {
		return nil
	}
	before := make(map[core.SelectionKey]string, len(prev.Selections))
	for _, s := range prev.Selections {
		before[core.SelectionKey{Capability: s.Capability, ModelName: s.ModelName}] = s.Provider
	}
	var changes []Change
	for _, s := range next.Selections {
		key := core.SelectionKey{Capability: s.Capability, ModelName: s.ModelName}
		old, ok := before[key]
		if !ok || old == s.Provider {
			continue
		}
		changes = append(changes, Change{Key: key, Previous: old, Current: s.Provider})
	}
	return changes
}

// Cache defines the interface for report storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the stored report.
	// Returns nil, nil if no report exists yet.
	Get(ctx context.Context) (*Report, error)

	// Set stores the report.
	Set(ctx context.Context, report *Report) error

	// Close releases any resources held by the cache.
	Close() error
}
