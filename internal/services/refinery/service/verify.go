package service

import (
	"context"
	"fmt"

	"spinlog/internal/core/play"
	"spinlog/internal/platform/logger"
	"spinlog/internal/services/refinery/domain"
)

// Verify implements domain.RunnerPort. It scans every partition and
// asserts the two invariants the dataset promises its readers: no two
// stored records share a key, and every record's derived coordinates
// match the partition path it is stored under
func (s *Service) Verify(ctx context.Context) (*domain.VerifyReport, error) {
	if err := s.Dataset.Ready(ctx); err != nil {
		return nil, err
	}
	parts, err := s.Dataset.ListPartitions(ctx)
	if err != nil {
		return nil, err
	}

	rep := &domain.VerifyReport{}
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := s.Dataset.ReadPartition(ctx, p)
		if err != nil {
			rep.Problems = append(rep.Problems, domain.VerifyProblem{
				Key:    p,
				Detail: fmt.Sprintf("unreadable: %v", err),
			})
			continue
		}
		rep.Partitions++
		rep.Records += len(recs)

		seen := make(map[play.Key]int, len(recs))
		for _, rec := range recs {
			k := rec.Key()
			seen[k]++
			if got := rec.Partition(); got != p {
				rep.Problems = append(rep.Problems, domain.VerifyProblem{
					Key:    p,
					Detail: fmt.Sprintf("record %s@%d filed under %s", k.TrackID, k.UnixSec, got),
				})
			}
		}
		for k, n := range seen {
			if n > 1 {
				rep.Problems = append(rep.Problems, domain.VerifyProblem{
					Key:    p,
					Detail: fmt.Sprintf("key %s@%d stored %d times", k.TrackID, k.UnixSec, n),
				})
			}
		}
	}

	ev := logger.C(ctx).Info()
	if !rep.OK() {
		ev = logger.C(ctx).Error()
	}
	ev.Int("partitions", rep.Partitions).
		Int("records", rep.Records).
		Int("problems", len(rep.Problems)).
		Msg("refinery: verify complete")
	return rep, nil
}
