//go:build integration_ch
// +build integration_ch

package ch

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startClickhouse(t *testing.T) (addr string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.8-alpine",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_USER":     "spinlog",
			"CLICKHOUSE_PASSWORD": "spinlog-secret",
			"CLICKHOUSE_DB":       "spinlog",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9000/tcp"),
			wait.ForLog("Ready for connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start clickhouse container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "9000/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	addr = fmt.Sprintf("%s:%s", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return addr, stop
}

func TestOpen_And_BatchRoundTrip_Integration(t *testing.T) {
	addr, stop := startClickhouse(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	c, err := Open(ctx, Config{
		Addr:     addr,
		Database: "spinlog",
		Username: "spinlog",
		Password: "spinlog-secret",
		Role:     "integration",
		Tag:      "test",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if err := c.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS it_plays (
			track_id  String,
			played_at DateTime('UTC'),
			hour      UInt8
		)
		ENGINE = MergeTree
		ORDER BY (played_at, track_id)
	`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	defer func() { _ = c.Exec(ctx, "DROP TABLE IF EXISTS it_plays") }()

	batch, err := c.PrepareBatch(ctx, "INSERT INTO it_plays")
	if err != nil {
		t.Fatalf("prepare batch: %v", err)
	}
	at := time.Date(2025, 8, 20, 22, 31, 46, 0, time.UTC)
	if err := batch.Append("T1", at, uint8(22)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := batch.Append("T2", at.Add(time.Minute), uint8(22)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := batch.Send(); err != nil {
		t.Fatalf("send: %v", err)
	}

	rows, err := c.Query(ctx, "SELECT track_id, played_at FROM it_plays ORDER BY played_at")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var got []string
	for rows.Next() {
		var (
			id string
			ts time.Time
		)
		if err := rows.Scan(&id, &ts); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows err: %v", err)
	}
	if len(got) != 2 || got[0] != "T1" || got[1] != "T2" {
		t.Fatalf("unexpected rows: %v", got)
	}
}
