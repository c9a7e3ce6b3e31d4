package domain

import (
	"context"
	"io"

	"spinlog/internal/core/play"
)

// RunnerPort is the surface the refinery module exposes
type RunnerPort interface {
	// Run processes one bounded batch of accumulated raw input.
	// Per-record and per-partition failures land in the report; the
	// returned error is non-nil only for run-level configuration
	// failures, which abort before any partition is touched
	Run(ctx context.Context, w Window) (*RunReport, error)

	// Verify scans refined partitions and checks key uniqueness and
	// record to path coordinate consistency
	Verify(ctx context.Context) (*VerifyReport, error)
}

// RawSource resolves and opens the raw objects for a window.
// Multiple objects are treated as one logical batch
type RawSource interface {
	// List returns the raw object keys for the window in lexical order
	List(ctx context.Context, w Window) ([]string, error)

	// Open returns a reader for one raw object
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Dataset is the partitioned columnar output the engine reads back and
// atomically replaces, one partition at a time
type Dataset interface {
	// Ready probes the dataset root; failure is a run-level abort
	Ready(ctx context.Context) error

	// ListPartitions returns every partition currently present
	ListPartitions(ctx context.Context) ([]play.PartitionKey, error)

	// ReadPartition returns the persisted records for p.
	// An absent partition is an empty set, not an error
	ReadPartition(ctx context.Context, p play.PartitionKey) ([]play.Canonical, error)

	// ReplacePartition atomically replaces p's content with recs.
	// On failure the previous content must remain intact
	ReplacePartition(ctx context.Context, p play.PartitionKey, recs []play.Canonical) error
}

// Ports are the engine backends a caller may inject at module build
// time, overriding the config driven wiring. Nil fields keep the
// defaults
type Ports struct {
	Source  RawSource
	Dataset Dataset
}
