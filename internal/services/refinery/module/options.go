package module

import (
	"time"

	"spinlog/internal/platform/config"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/validate"
)

// Options holds configuration options for the refinery service
type Options struct {
	// RawPrefix is where the collector drops JSONL batch objects
	RawPrefix string `json:"raw_prefix" validate:"required"`

	// RefinedPrefix roots the parquet dataset on the object store
	RefinedPrefix string `json:"refined_prefix" validate:"required"`

	// Backend selects the dataset implementation
	Backend string `json:"backend" validate:"oneof=parquet clickhouse"`

	Workers    int           `json:"workers" validate:"min=1"`
	MaxRetries int           `json:"max_retries" validate:"min=1"`
	RetryBase  time.Duration `json:"retry_base" validate:"min=0"`

	ReadTimeout      time.Duration `json:"read_timeout"`
	PartitionTimeout time.Duration `json:"partition_timeout"`
}

// FromConfig reads the refinery options from config with CORE_REFINE_ prefix
func FromConfig(cfg config.Conf) Options {
	rf := cfg.Prefix("CORE_REFINE_")
	opts := Options{
		RawPrefix:        rf.MayString("RAW_PREFIX", "raw"),
		RefinedPrefix:    rf.MayString("REFINED_PREFIX", "refined"),
		Backend:          rf.MayEnum("BACKEND", "parquet", "parquet", "clickhouse"),
		Workers:          rf.MayInt("WORKERS", 4),
		MaxRetries:       rf.MayInt("RETRIES", 3),
		RetryBase:        rf.MayDuration("RETRY_BASE", 500*time.Millisecond),
		ReadTimeout:      rf.MayDuration("READ_TIMEOUT", 10*time.Minute),
		PartitionTimeout: rf.MayDuration("PARTITION_TIMEOUT", 5*time.Minute),
	}
	if err := validate.Struct(opts); err != nil {
		logger.Get().Panic().Err(err).Msg("invalid refinery options")
	}
	return opts
}
