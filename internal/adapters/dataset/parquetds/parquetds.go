// Package parquetds stores the refined dataset as one parquet object per
// (date, hour) partition on object storage.
//
// Layout under the configured prefix:
//
//	date=YYYY-MM-DD/hour=HH/plays.parquet
//
// Replacement stages the new object under tmp/<token>/ and promotes it
// with the store's atomic commit, so a failed replace leaves the prior
// partition object untouched and readers never see a half-written file
package parquetds

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
)

const (
	objectName = "plays.parquet"
	tmpDir     = "tmp/"
)

// Dataset reads and atomically replaces parquet partitions
type Dataset struct {
	objects store.Objects
	prefix  string
	log     logger.Logger
}

// New returns a Dataset rooted at prefix on the given object store
func New(objects store.Objects, prefix string, log logger.Logger) *Dataset {
	prefix = strings.Trim(prefix, "/")
	return &Dataset{objects: objects, prefix: prefix, log: log}
}

// Ready probes the dataset root
func (d *Dataset) Ready(ctx context.Context) error {
	if d.objects == nil {
		return perr.Configf("parquet dataset requires an object store")
	}
	if err := d.objects.Ping(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeConfig, "dataset root not ready")
	}
	return nil
}

func (d *Dataset) key(parts ...string) string {
	all := append([]string{d.prefix}, parts...)
	return strings.Join(all, "/")
}

func (d *Dataset) partitionKey(p play.PartitionKey) string {
	return d.key(p.String(), objectName)
}

// ListPartitions parses partition coordinates back out of object keys;
// the path is the contract downstream tooling relies on
func (d *Dataset) ListPartitions(ctx context.Context) ([]play.PartitionKey, error) {
	infos, err := d.objects.List(ctx, d.prefix+"/date=")
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePartitionRead, "list partitions")
	}
	seen := make(map[play.PartitionKey]struct{})
	var out []play.PartitionKey
	for _, info := range infos {
		rel := strings.TrimPrefix(info.Key, d.prefix+"/")
		dir, name := pathSplit(rel)
		if name != objectName {
			continue
		}
		p, perr2 := play.ParsePartitionKey(dir)
		if perr2 != nil {
			d.log.Warn().Str("key", info.Key).Msg("parquetds: stray object under dataset prefix")
			continue
		}
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

// ReadPartition returns the persisted records for p; absent is empty
func (d *Dataset) ReadPartition(ctx context.Context, p play.PartitionKey) ([]play.Canonical, error) {
	rc, err := d.objects.Open(ctx, d.partitionKey(p))
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "open partition %s", p)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "read partition %s", p)
	}
	rows, err := parquet.Read[row](bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "decode partition %s", p)
	}
	recs := make([]play.Canonical, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.canonical())
	}
	return recs, nil
}

// ReplacePartition writes recs to a staging key and commits it over the
// partition object. Stale extra objects under the partition path are
// swept only after the commit succeeds. An empty authoritative set
// removes the partition entirely
func (d *Dataset) ReplacePartition(ctx context.Context, p play.PartitionKey, recs []play.Canonical) error {
	final := d.partitionKey(p)

	if len(recs) == 0 {
		if err := d.objects.Remove(ctx, final); err != nil {
			return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "remove empty partition %s", p)
		}
		return d.sweepStale(ctx, p, final)
	}

	var buf bytes.Buffer
	if err := writeRows(&buf, recs); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "encode partition %s", p)
	}

	staged := d.key(tmpDir+uuid.NewString(), objectName)
	if err := d.objects.Put(ctx, staged, &buf, int64(buf.Len()), "application/octet-stream"); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "stage partition %s", p)
	}
	if err := d.objects.Commit(ctx, staged, final); err != nil {
		// best effort cleanup of the orphaned staging object
		_ = d.objects.Remove(ctx, staged)
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "commit partition %s", p)
	}
	return d.sweepStale(ctx, p, final)
}

// sweepStale removes leftover objects under the partition path that are
// not the committed object. Sweep failures are logged, not fatal: the
// partition content itself is already correct
func (d *Dataset) sweepStale(ctx context.Context, p play.PartitionKey, keep string) error {
	infos, err := d.objects.List(ctx, d.key(p.String())+"/")
	if err != nil {
		d.log.Warn().Err(err).Stringer("partition", p).Msg("parquetds: stale sweep list failed")
		return nil
	}
	for _, info := range infos {
		if info.Key == keep {
			continue
		}
		if err := d.objects.Remove(ctx, info.Key); err != nil {
			d.log.Warn().Err(err).Str("key", info.Key).Msg("parquetds: stale object not removed")
		}
	}
	return nil
}

func pathSplit(key string) (dir, name string) {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}

func writeRows(w io.Writer, recs []play.Canonical) error {
	pw := parquet.NewGenericWriter[row](w, parquet.Compression(&parquet.Snappy))
	rows := make([]row, len(recs))
	for i, rec := range recs {
		rows[i] = fromCanonical(rec)
	}
	if _, err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}
