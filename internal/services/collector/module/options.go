package module

import (
	"time"

	"spinlog/internal/platform/config"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/validate"
)

// Options holds configuration options for the collector service
type Options struct {
	// RawPrefix is where JSONL batch objects land for the refinery
	RawPrefix string `json:"raw_prefix" validate:"required"`

	// SnapshotPrefix is where pretty printed copies land; empty disables
	SnapshotPrefix string `json:"snapshot_prefix"`

	// Limit is the history items requested per pass
	Limit int `json:"limit" validate:"min=1,max=50"`

	// Spotify app credentials and the long lived refresh token
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`

	// HTTP behavior
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries" validate:"min=1"`
	RetryBase  time.Duration `json:"retry_base" validate:"min=0"`
}

// FromConfig reads the collector options from config with CORE_COLLECT_ prefix
func FromConfig(cfg config.Conf) Options {
	co := cfg.Prefix("CORE_COLLECT_")
	opts := Options{
		RawPrefix:      co.MayString("RAW_PREFIX", "raw"),
		SnapshotPrefix: co.MayString("SNAPSHOT_PREFIX", "snapshots"),
		Limit:          co.MayInt("LIMIT", 50),
		ClientID:       co.MustString("SPOTIFY_CLIENT_ID"),
		ClientSecret:   co.MustString("SPOTIFY_CLIENT_SECRET"),
		RefreshToken:   co.MustString("SPOTIFY_REFRESH_TOKEN"),
		Timeout:        co.MayDuration("TIMEOUT", 10*time.Second),
		MaxRetries:     co.MayInt("RETRIES", 5),
		RetryBase:      co.MayDuration("RETRY_BASE", 500*time.Millisecond),
	}
	if err := validate.Struct(opts); err != nil {
		logger.Get().Panic().Err(err).Msg("invalid collector options")
	}
	return opts
}
