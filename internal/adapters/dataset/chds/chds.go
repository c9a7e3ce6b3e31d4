// Package chds stores the refined dataset in ClickHouse.
//
// The plays table is a MergeTree partitioned by (played_date,
// played_hour). Replacement stages rows into plays_staging and promotes
// them with ALTER TABLE ... REPLACE PARTITION, ClickHouse's native
// atomic partition swap, so a failed replace leaves the served
// partition untouched. Concurrent workers stay isolated because they
// stage disjoint partitions
package chds

import (
	"context"
	"fmt"
	"sort"

	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
	"spinlog/internal/platform/store"
)

const (
	tableName   = "plays"
	stagingName = "plays_staging"
)

const columnsDDL = `
	track_id             String,
	played_at_ms         Int64,
	duration_ms          Int64,
	name                 Nullable(String),
	artist               Nullable(String),
	artist_id            Nullable(String),
	album                Nullable(String),
	album_id             Nullable(String),
	release_date         Nullable(String),
	total_tracks         Nullable(Int64),
	popularity           Nullable(Int32),
	explicit             Nullable(Bool),
	collection_timestamp Nullable(String),
	played_date          Date,
	played_hour          UInt8
`

// Dataset reads and atomically replaces ClickHouse partitions
type Dataset struct {
	ch  store.Clickhouse
	log logger.Logger
}

// New returns a Dataset over the given clickhouse seam
func New(ch store.Clickhouse, log logger.Logger) *Dataset {
	return &Dataset{ch: ch, log: log}
}

// Ready pings the backend and ensures both tables exist
func (d *Dataset) Ready(ctx context.Context) error {
	if d.ch == nil {
		return perr.Configf("clickhouse dataset requires a clickhouse connection")
	}
	if err := d.ch.Ping(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeConfig, "dataset backend not ready")
	}
	for _, name := range []string{tableName, stagingName} {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)
			ENGINE = MergeTree
			PARTITION BY (played_date, played_hour)
			ORDER BY (played_at_ms, track_id)`, name, columnsDDL)
		if err := d.ch.Exec(ctx, ddl); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeConfig, "ensure table %s", name)
		}
	}
	return nil
}

// partitionTuple renders the literal partition id for ALTER statements.
// Coordinates come from a parsed PartitionKey, so the literal is safe
func partitionTuple(p play.PartitionKey) string {
	return fmt.Sprintf("(toDate('%s'), %d)", p.Date, p.Hour)
}

// ListPartitions returns every (date, hour) present in the plays table
func (d *Dataset) ListPartitions(ctx context.Context) ([]play.PartitionKey, error) {
	rows, err := d.ch.Query(ctx,
		`SELECT DISTINCT toString(played_date), toInt32(played_hour) FROM `+tableName)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePartitionRead, "list partitions")
	}
	defer rows.Close()

	var out []play.PartitionKey
	for rows.Next() {
		var date string
		var hour int32
		if err := rows.Scan(&date, &hour); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodePartitionRead, "scan partition row")
		}
		out = append(out, play.PartitionKey{Date: date, Hour: int(hour)})
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodePartitionRead, "iterate partitions")
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
	rows, err := d.ch.Query(ctx, `SELECT
			track_id, played_at_ms, duration_ms,
			name, artist, artist_id, album, album_id,
			release_date, total_tracks, popularity, explicit, collection_timestamp
		FROM `+tableName+`
		WHERE played_date = toDate(?) AND played_hour = ?
		ORDER BY played_at_ms, track_id`, p.Date, uint8(p.Hour))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "query partition %s", p)
	}
	defer rows.Close()

	var out []play.Canonical
	for rows.Next() {
		var r row
		if err := rows.Scan(
			&r.TrackID, &r.PlayedAtMS, &r.DurationMS,
			&r.Name, &r.Artist, &r.ArtistID, &r.Album, &r.AlbumID,
			&r.ReleaseDate, &r.TotalTracks, &r.Popularity, &r.Explicit, &r.CollectedAt,
		); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "scan partition %s", p)
		}
		out = append(out, r.canonical())
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePartitionRead, "iterate partition %s", p)
	}
	return out, nil
}

// ReplacePartition stages recs and swaps them in atomically. An empty
// authoritative set drops the partition entirely
func (d *Dataset) ReplacePartition(ctx context.Context, p play.PartitionKey, recs []play.Canonical) error {
	tuple := partitionTuple(p)

	if len(recs) == 0 {
		if err := d.ch.Exec(ctx, fmt.Sprintf(
			"ALTER TABLE %s DROP PARTITION %s", tableName, tuple)); err != nil {
			return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "drop empty partition %s", p)
		}
		return nil
	}

	// clear any staging leftovers from an earlier failed run
	if err := d.ch.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s DROP PARTITION %s", stagingName, tuple)); err != nil {
		d.log.Debug().Err(err).Stringer("partition", p).Msg("chds: staging partition clear")
	}

	batch, err := d.ch.Batch(ctx, fmt.Sprintf(`INSERT INTO %s (
		track_id, played_at_ms, duration_ms,
		name, artist, artist_id, album, album_id,
		release_date, total_tracks, popularity, explicit, collection_timestamp,
		played_date, played_hour)`, stagingName))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "prepare staging insert %s", p)
	}
	for _, rec := range recs {
		r := fromCanonical(rec)
		if err := batch.Append(
			r.TrackID, r.PlayedAtMS, r.DurationMS,
			r.Name, r.Artist, r.ArtistID, r.Album, r.AlbumID,
			r.ReleaseDate, r.TotalTracks, r.Popularity, r.Explicit, r.CollectedAt,
			p.Date, uint8(p.Hour),
		); err != nil {
			_ = batch.Abort()
			return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "stage record for %s", p)
		}
	}
	if err := batch.Send(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "send staging batch %s", p)
	}

	if err := d.ch.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s REPLACE PARTITION %s FROM %s", tableName, tuple, stagingName)); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePartitionWrite, "promote partition %s", p)
	}

	// staged copy is no longer needed once promoted
	if err := d.ch.Exec(ctx, fmt.Sprintf(
		"ALTER TABLE %s DROP PARTITION %s", stagingName, tuple)); err != nil {
		d.log.Warn().Err(err).Stringer("partition", p).Msg("chds: staging partition not dropped")
	}
	return nil
}
