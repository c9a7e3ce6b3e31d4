// Package service implements the refinery engine: validate, canonicalize,
// dedupe, and atomically replace (date, hour) partitions of the dataset
package service

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spinlog/internal/adapters/ingest/jsonl"
	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
	"spinlog/internal/services/refinery/domain"
	"spinlog/internal/services/refinery/guardrails"
)

// Config holds configuration options for the refinery service
type Config struct {
	// Workers is the number of partitions processed in parallel; <=0 -> 1
	Workers int

	// Partition-level retry
	MaxRetries int           // attempts per partition; <=0 -> 1
	RetryBase  time.Duration // base backoff for partition retries; <=0 -> 500ms

	// Timeouts applied via guardrails
	ReadTimeout      time.Duration
	PartitionTimeout time.Duration
}

// Service implements the refinery engine
type Service struct {
	Source  domain.RawSource
	Dataset domain.Dataset
	Cfg     Config

	// one Run owns the engine at a time
	running atomic.Bool
}

// New constructs the refinery service
func New(source domain.RawSource, dataset domain.Dataset, cfg Config) *Service {
	if source == nil {
		panic("refinery.Service requires a non nil RawSource")
	}
	if dataset == nil {
		panic("refinery.Service requires a non nil Dataset")
	}
	return &Service{Source: source, Dataset: dataset, Cfg: cfg}
}

// Run implements domain.RunnerPort. All raw input is read and decoded
// before any partition is touched, so run-level failures never leave
// partial output; after that point failures are isolated per partition
func (s *Service) Run(ctx context.Context, w domain.Window) (*domain.RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, perr.Conflictf("a run is already in progress")
	}
	defer s.running.Store(false)

	rep := &domain.RunReport{
		RunID:           uuid.NewString(),
		Window:          w,
		InvalidByReason: map[string]int{},
		Started:         time.Now().UTC(),
	}
	ctx = logger.WithRun(ctx, rep.RunID)

	if err := s.Dataset.Ready(ctx); err != nil {
		return nil, err
	}
	keys, err := s.Source.List(ctx, w)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "raw input unreachable")
	}

	t0 := time.Now()
	batch, err := s.readBatch(ctx, keys, rep)
	rep.ReadMS = int(time.Since(t0).Milliseconds())
	if err != nil {
		return nil, err
	}

	groups := play.GroupByPartition(batch)
	rep.PartitionsTouched = len(groups)

	t1 := time.Now()
	s.processPartitions(ctx, groups, rep)
	rep.WriteMS = int(time.Since(t1).Milliseconds())

	rep.Finished = time.Now().UTC()
	sort.Slice(rep.PartitionsFailed, func(i, j int) bool {
		a, b := rep.PartitionsFailed[i].Key, rep.PartitionsFailed[j].Key
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Hour < b.Hour
	})
	s.logReport(ctx, rep)
	return rep, nil
}

// readBatch streams every raw object into one canonical record slice,
// accumulating rejection counts as it goes. Arrival order is preserved
// across objects so later tie breaks see the original emission order
func (s *Service) readBatch(ctx context.Context, keys []string, rep *domain.RunReport) ([]play.Canonical, error) {
	tos := guardrails.Timeouts{Read: s.Cfg.ReadTimeout, Partition: s.Cfg.PartitionTimeout}
	readCtx, cancel := guardrails.ForRead(ctx, tos)
	defer cancel()

	var out []play.Canonical
	for _, key := range keys {
		if err := readCtx.Err(); err != nil {
			return nil, err
		}
		rc, err := s.Source.Open(readCtx, key)
		if err != nil {
			return nil, err
		}
		rerr := func() error {
			// NewReader owns rc and closes it on failure
			rd, err := jsonl.NewReader(rc)
			if err != nil {
				return err
			}
			defer rd.Close()
			for {
				ln, err := rd.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					if perr.CodeOf(err) == perr.ErrorCodeMalformedRecord {
						rep.Malformed++
						continue
					}
					return err
				}
				v, verr := play.Validate(ln.Record)
				if verr != nil {
					rep.Invalid++
					rep.InvalidByReason[perr.CodeOf(verr).String()]++
					continue
				}
				rep.Valid++
				out = append(out, play.Canonicalize(v))
			}
			lines, bytesRead := rd.Stats()
			rep.LinesSeen += lines
			rep.BytesRead += bytesRead
			return nil
		}()
		if rerr != nil {
			return nil, rerr
		}
		rep.Objects++
	}
	return out, nil
}

// partitionOutcome carries one partition's results back to the report
type partitionOutcome struct {
	key         play.PartitionKey
	written     int
	dupInBatch  int
	dupExisting int
	created     bool
	err         error
}

// processPartitions runs the per-partition read-merge-replace on a
// worker pool. One worker owns a partition end to end; failures are
// folded into the report and never abort sibling partitions
func (s *Service) processPartitions(ctx context.Context, groups map[play.PartitionKey][]play.Canonical, rep *domain.RunReport) {
	if len(groups) == 0 {
		return
	}

	parts := make([]play.PartitionKey, 0, len(groups))
	for p := range groups {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Date != parts[j].Date {
			return parts[i].Date < parts[j].Date
		}
		return parts[i].Hour < parts[j].Hour
	})

	workers := max(s.Cfg.Workers, 1)
	if workers > len(parts) {
		workers = len(parts)
	}

	var mu sync.Mutex
	work := make(chan play.PartitionKey)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				pctx := logger.WithPartition(ctx, p.String())
				out := s.runPartitionWithRetry(pctx, p, groups[p])
				mu.Lock()
				rep.DupInBatch += out.dupInBatch
				if out.err != nil {
					rep.PartitionsFailed = append(rep.PartitionsFailed, domain.PartitionFailure{
						Key:  p,
						Code: perr.CodeOf(out.err).String(),
						Err:  out.err.Error(),
					})
				} else {
					rep.DupAgainstExisting += out.dupExisting
					rep.Written += out.written
					if out.created {
						rep.PartitionsCreated++
					} else {
						rep.PartitionsReplaced++
					}
				}
				mu.Unlock()
			}
		}()
	}
	for _, p := range parts {
		work <- p
	}
	close(work)
	wg.Wait()
}

func (s *Service) runPartitionWithRetry(ctx context.Context, p play.PartitionKey, recs []play.Canonical) partitionOutcome {
	attempts := max(s.Cfg.MaxRetries, 1)

	var last partitionOutcome
	for i := range attempts {
		last = s.runPartition(ctx, p, recs)
		if last.err == nil {
			return last
		}

		// stop early on non-retryable errors
		if !perr.Retryable(last.err) {
			return last
		}
		if i == attempts-1 {
			break
		}

		if se := sleepCtx(ctx, backoffDelay(s.Cfg.RetryBase, i)); se != nil {
			last.err = se
			return last
		}
		logger.C(ctx).Warn().Int("attempt", i+1).
			Err(last.err).Msg("refinery: retrying partition")
	}
	return last
}

// backoffDelay is the jittered exponential delay after failed attempt
// i, capped at 30s. The shift is guarded so a sub-millisecond base or a
// high attempt count can neither overflow nor panic the jitter draw
func backoffDelay(base time.Duration, i int) time.Duration {
	const ceiling = 30 * time.Second
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := ceiling
	if base < ceiling>>i {
		d = base << i
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

// runPartition is one partition's sequential read-merge-replace.
// A write either commits or fails leaving prior state untouched; there
// is no mid-write cancellation point
func (s *Service) runPartition(ctx context.Context, p play.PartitionKey, recs []play.Canonical) partitionOutcome {
	pCtx, cancel := guardrails.ForPartition(ctx, guardrails.Timeouts{Partition: s.Cfg.PartitionTimeout})
	defer cancel()

	out := partitionOutcome{key: p}

	survivors, dups := play.Dedupe(recs)
	out.dupInBatch = dups

	existing, err := s.Dataset.ReadPartition(pCtx, p)
	if err != nil {
		out.err = err
		return out
	}
	out.created = len(existing) == 0

	merged, collided := play.Merge(existing, survivors)
	out.dupExisting = collided

	if err := s.Dataset.ReplacePartition(pCtx, p, merged); err != nil {
		out.err = err
		return out
	}
	out.written = len(merged)
	return out
}

// logReport emits the run summary; best effort, never aborts the run
func (s *Service) logReport(ctx context.Context, rep *domain.RunReport) {
	ev := logger.C(ctx).Info()
	if rep.Failed() {
		ev = logger.C(ctx).Warn()
	}
	ev.Time("window_from", rep.Window.From).
		Time("window_to", rep.Window.To).
		Int("objects", rep.Objects).
		Int64("bytes_read", rep.BytesRead).
		Int("lines_seen", rep.LinesSeen).
		Int("malformed", rep.Malformed).
		Int("invalid", rep.Invalid).
		Int("valid", rep.Valid).
		Int("dup_in_batch", rep.DupInBatch).
		Int("dup_against_existing", rep.DupAgainstExisting).
		Int("written", rep.Written).
		Int("partitions_touched", rep.PartitionsTouched).
		Int("partitions_created", rep.PartitionsCreated).
		Int("partitions_replaced", rep.PartitionsReplaced).
		Int("partitions_failed", len(rep.PartitionsFailed)).
		Int("read_ms", rep.ReadMS).
		Int("write_ms", rep.WriteMS).
		Msg("refinery: run complete")

	for _, f := range rep.PartitionsFailed {
		logger.C(ctx).Error().Stringer("partition", f.Key).
			Str("code", f.Code).Str("error", f.Err).
			Msg("refinery: partition not updated")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
