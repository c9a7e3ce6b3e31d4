// Package store provides a unified interface to the storage backends
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"spinlog/internal/platform/logger"
)

// Store is the facade for the storage backends
// zero value is safe but does nothing
type Store struct {
	// Log is the logger used by subclients
	// zero means a no op zerolog logger
	Log logger.Logger

	// Objects is the object storage seam, nil when disabled
	Objects Objects

	// CH is the clickhouse seam, nil when disabled
	CH Clickhouse
}

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Objects is the object storage seam raw and refined data live behind.
// Keys are slash separated paths relative to the backend root
type Objects interface {
	// Ping verifies the backend is reachable and the root exists
	Ping(ctx context.Context) error

	// Open returns a reader for key. Missing keys map to a NotFound coded error
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes the full contents of r under key. size may be -1 when unknown
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// List returns all objects whose key starts with prefix, lexically ordered
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Remove deletes key. Removing a missing key is not an error
	Remove(ctx context.Context, key string) error

	// Commit atomically moves src to dst, replacing any existing dst
	Commit(ctx context.Context, src, dst string) error
}

// Rows exposes the minimal iteration and scan for a columnar result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Batch is a prepared columnar insert
type Batch interface {
	Append(args ...any) error
	Send() error
	Abort() error
}

// Clickhouse is a tiny seam for columnar writes and queries
type Clickhouse interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Batch(ctx context.Context, insertSQL string) (Batch, error)
	Close() error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open constructs a Store with the requested backends
// backends not enabled in cfg remain nil on the Store
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// defaults for zero logger to avoid nil checks
	s.Log = s.Log.With().Logger()

	if cfg.Objects.Enabled {
		obj, err := openObjects(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.Objects = obj
	}

	if cfg.CH.Enabled {
		chClient, err := openCH(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.CH = chClient
	}

	return s, nil
}

// Guard verifies all configured seams the Store knows about
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	if s.Objects != nil {
		if err := s.Objects.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("objects: %w", err))
		}
	}
	if s.CH != nil {
		if err := s.CH.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ch: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all initialized backends gracefully
// nil backends are ignored
func (s *Store) Close(ctx context.Context) error {
	var errs []error

	if s.CH != nil {
		if e := s.CH.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	if c, ok := s.Objects.(interface{ Close() error }); ok {
		if e := c.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	return errors.Join(errs...)
}
