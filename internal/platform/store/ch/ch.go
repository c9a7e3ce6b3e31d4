// Package ch provides a clickhouse client
package ch

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Config configures clickhouse client
type Config struct {
	Addr     string
	Database string
	Username string
	Password string

	// Role and Tag stamp the connection client info
	Role string
	Tag  string
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Batch is a prepared insert accumulating rows client side
type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// CH wraps a native clickhouse connection
type CH struct {
	conn clickhouse.Conn
}

// Open dials clickhouse and returns a client
func Open(_ context.Context, cfg Config) (*CH, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo:  BuildClientInfo(cfg.Role, cfg.Tag),
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &CH{conn: conn}, nil
}

// Ping verifies connectivity
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Exec runs a statement that returns no rows
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	return c.conn.Exec(ctx, sql, args...)
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// PrepareBatch prepares a batched insert against insertSQL
func (c *CH) PrepareBatch(ctx context.Context, insertSQL string) (Batch, error) {
	b, err := c.conn.PrepareBatch(ctx, insertSQL)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Close closes resources
func (c *CH) Close() error { return c.conn.Close() }
