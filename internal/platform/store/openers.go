package store

import (
	"context"
	"fmt"
	"time"

	chx "spinlog/internal/platform/store/ch"
)

// openObjects opens the configured object backend and pings it with retry
func openObjects(ctx context.Context, cfg Config, s *Store) (Objects, error) {
	var (
		obj Objects
		err error
	)
	switch cfg.Objects.Backend {
	case "", "fs":
		obj, err = newFSObjects(cfg.Objects.Root, s.Log)
	case "minio":
		obj, err = newMinioObjects(cfg.Objects, s.Log)
	default:
		return nil, fmt.Errorf("unknown objects backend %q", cfg.Objects.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := pingRetry(ctx, obj.Ping, cfg.Objects.ConnectRetries, cfg.Objects.PingTimeout); err != nil {
		return nil, fmt.Errorf("objects ping failed: %w", err)
	}
	return obj, nil
}

// openCH opens clickhouse and wraps it with our adapter
func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{
		Addr:     cfg.CH.Addr,
		Database: cfg.CH.Database,
		Username: cfg.CH.Username,
		Password: cfg.CH.Password,
		Role:     cfg.CH.ClientRole,
		Tag:      cfg.CH.ClientTag,
	})
	if err != nil {
		return nil, err
	}

	if err := pingRetry(ctx, c.Ping, 0, 0); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return newCHAdapter(c), nil
}

// pingRetry pings with exponential backoff until the attempt budget runs out.
// Connection guardrails: the process should survive a backend that is still
// coming up, but not hang forever on one that never will
func pingRetry(ctx context.Context, ping func(context.Context) error, attempts int, timeout time.Duration) error {
	const (
		defaultAttempts = 20
		defaultTimeout  = 3 * time.Second
		backoffStart    = 150 * time.Millisecond
		backoffCeiling  = 2 * time.Second
	)
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = ping(toCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(backoff)
		if backoff < backoffCeiling {
			backoff *= 2
			if backoff > backoffCeiling {
				backoff = backoffCeiling
			}
		}
	}
	return fmt.Errorf("ping failed after %d attempts: %w", attempts, lastErr)
}
