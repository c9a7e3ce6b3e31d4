// Package domain defines the collector's report and port types
package domain

import (
	"context"
	"time"

	"spinlog/internal/core/play"
)

// Fetcher is the playback history source the collector drains
type Fetcher interface {
	// RecentlyPlayed returns up to limit history items, newest first
	RecentlyPlayed(ctx context.Context, limit int) ([]play.Raw, error)
}

// CollectReport is one collection pass's status output
type CollectReport struct {
	RunID string

	// Items is how many history entries the fetch returned
	Items int

	// BatchKey is the JSONL object written for the refinery, empty
	// when the fetch returned nothing
	BatchKey string

	// SnapshotKey is the pretty printed copy written for humans
	SnapshotKey string

	Started  time.Time
	Finished time.Time
}

// Wrote reports whether the pass produced any output objects
func (r *CollectReport) Wrote() bool { return r.BatchKey != "" }

// CollectorPort triggers one collection pass
type CollectorPort interface {
	Collect(ctx context.Context) (*CollectReport, error)
}

// Ports are the backends a caller may inject at module build time. A
// nil Fetcher keeps the config driven Spotify client
type Ports struct {
	Fetcher Fetcher
}
