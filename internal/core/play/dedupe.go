package play

import "sort"

// survivor pairs a record with its arrival rank for tie breaks.
// Persisted records carry rank -1 so any batch record outranks them
type survivor struct {
	rec  Canonical
	rank int
}

// wins reports whether the challenger at rank beats the incumbent:
// greater completeness first, later arrival on an exact tie
func wins(challenger Canonical, rank int, incumbent survivor) bool {
	cc, ic := challenger.Completeness(), incumbent.rec.Completeness()
	if cc != ic {
		return cc > ic
	}
	return rank > incumbent.rank
}

// Dedupe collapses records sharing a Key, keeping one survivor per key.
// in must be in arrival order. Returns the survivors in deterministic
// (PlayedAt, TrackID) order plus the number of records collapsed away
func Dedupe(in []Canonical) ([]Canonical, int) {
	if len(in) == 0 {
		return nil, 0
	}
	best := make(map[Key]survivor, len(in))
	for i, rec := range in {
		k := rec.Key()
		cur, ok := best[k]
		if !ok || wins(rec, i, cur) {
			best[k] = survivor{rec: rec, rank: i}
		}
	}
	out := collect(best)
	return out, len(in) - len(out)
}

// Merge folds batch survivors into previously persisted records under
// the same rule, so reprocessing an overlapping window is idempotent.
// Persisted records count as strictly earlier arrivals: an exact tie
// between a persisted record and a batch record keeps the batch record.
// Returns the authoritative set in deterministic order plus the number
// of batch records that collided with a persisted key
func Merge(existing, batch []Canonical) ([]Canonical, int) {
	best := make(map[Key]survivor, len(existing)+len(batch))
	for _, rec := range existing {
		best[rec.Key()] = survivor{rec: rec, rank: -1}
	}

	collided := 0
	for i, rec := range batch {
		k := rec.Key()
		cur, ok := best[k]
		if !ok {
			best[k] = survivor{rec: rec, rank: i}
			continue
		}
		if cur.rank < 0 {
			collided++
		}
		if wins(rec, i, cur) {
			best[k] = survivor{rec: rec, rank: i}
		}
	}
	return collect(best), collided
}

// GroupByPartition buckets records by derived partition, preserving
// arrival order inside each bucket so later dedupe tie breaks still see
// the original ordering
func GroupByPartition(recs []Canonical) map[PartitionKey][]Canonical {
	if len(recs) == 0 {
		return nil
	}
	out := make(map[PartitionKey][]Canonical)
	for _, rec := range recs {
		p := rec.Partition()
		out[p] = append(out[p], rec)
	}
	return out
}

func collect(best map[Key]survivor) []Canonical {
	out := make([]Canonical, 0, len(best))
	for _, s := range best {
		out = append(out, s.rec)
	}
	sortCanonical(out)
	return out
}

// sortCanonical orders records by (PlayedAt, TrackID) so a partition's
// serialized content is byte identical across reruns
func sortCanonical(recs []Canonical) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].PlayedAt.Equal(recs[j].PlayedAt) {
			return recs[i].PlayedAt.Before(recs[j].PlayedAt)
		}
		return recs[i].TrackID < recs[j].TrackID
	})
}
