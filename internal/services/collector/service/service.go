// Package service implements the collector: drain the playback history
// and land it as day partitioned JSONL batches on the object store
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
	"spinlog/internal/services/collector/domain"
)

// Config holds configuration options for the collector service
type Config struct {
	// Limit is the number of history items requested per pass; <=0
	// takes the source's maximum
	Limit int

	// RawPrefix roots the JSONL batch objects the refinery consumes
	RawPrefix string

	// SnapshotPrefix roots the pretty printed copies; empty disables them
	SnapshotPrefix string
}

// Service implements the collector
type Service struct {
	Fetcher domain.Fetcher
	Objects store.Objects
	Cfg     Config

	now func() time.Time
}

// New constructs the collector service
func New(fetcher domain.Fetcher, objects store.Objects, cfg Config) *Service {
	if fetcher == nil {
		panic("collector.Service requires a non nil Fetcher")
	}
	if objects == nil {
		panic("collector.Service requires a non nil object store")
	}
	return &Service{Fetcher: fetcher, Objects: objects, Cfg: cfg, now: time.Now}
}

// Collect implements domain.CollectorPort. An empty history writes
// nothing; a non empty one lands the JSONL batch first, then the
// snapshot copy, so a half finished pass never loses refinery input
func (s *Service) Collect(ctx context.Context) (*domain.CollectReport, error) {
	rep := &domain.CollectReport{
		RunID:   uuid.NewString(),
		Started: s.now().UTC(),
	}
	ctx = logger.WithRun(ctx, rep.RunID)

	recs, err := s.Fetcher.RecentlyPlayed(ctx, s.Cfg.Limit)
	if err != nil {
		return nil, err
	}
	rep.Items = len(recs)
	if len(recs) == 0 {
		rep.Finished = s.now().UTC()
		logger.C(ctx).Info().Msg("collector: no new plays")
		return rep, nil
	}

	now := s.now().UTC()
	stamp := now.Format("20060102_150405")

	batchKey := fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/plays_%s.jsonl",
		strings.Trim(s.Cfg.RawPrefix, "/"), now.Year(), int(now.Month()), now.Day(), stamp)
	body, err := encodeJSONL(recs)
	if err != nil {
		return nil, err
	}
	if err := s.Objects.Put(ctx, batchKey, bytes.NewReader(body), int64(len(body)), "application/x-ndjson"); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeStorage, "write batch %s", batchKey)
	}
	rep.BatchKey = batchKey

	if p := strings.Trim(s.Cfg.SnapshotPrefix, "/"); p != "" {
		snapKey := fmt.Sprintf("%s/plays_%s.json", p, stamp)
		pretty, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "encode snapshot")
		}
		if err := s.Objects.Put(ctx, snapKey, bytes.NewReader(pretty), int64(len(pretty)), "application/json"); err != nil {
			// the batch already landed; the snapshot is a convenience copy
			logger.C(ctx).Warn().Err(err).Str("key", snapKey).Msg("collector: snapshot write failed")
		} else {
			rep.SnapshotKey = snapKey
		}
	}

	rep.Finished = s.now().UTC()
	logger.C(ctx).Info().
		Int("items", rep.Items).
		Str("batch", rep.BatchKey).
		Str("snapshot", rep.SnapshotKey).
		Msg("collector: pass complete")
	return rep, nil
}

// encodeJSONL renders one compact JSON object per line
func encodeJSONL(recs []play.Raw) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "encode batch line")
		}
	}
	return buf.Bytes(), nil
}
