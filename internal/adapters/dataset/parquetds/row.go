package parquetds

import (
	"time"

	"spinlog/internal/core/play"
)

// row is the columnar schema for one stored play. Optional metadata is
// nullable so absence survives a round trip; the playback instant is
// millisecond epoch UTC, matching the upstream precision
type row struct {
	TrackID    string `parquet:"track_id"`
	PlayedAtMS int64  `parquet:"played_at_ms"`
	DurationMS int64  `parquet:"duration_ms"`

	Name        *string `parquet:"name,optional"`
	Artist      *string `parquet:"artist,optional"`
	ArtistID    *string `parquet:"artist_id,optional"`
	Album       *string `parquet:"album,optional"`
	AlbumID     *string `parquet:"album_id,optional"`
	ReleaseDate *string `parquet:"release_date,optional"`
	TotalTracks *int64  `parquet:"total_tracks,optional"`
	Popularity  *int32  `parquet:"popularity,optional"`
	Explicit    *bool   `parquet:"explicit,optional"`
	CollectedAt *string `parquet:"collection_timestamp,optional"`
}

func fromCanonical(c play.Canonical) row {
	return row{
		TrackID:     c.TrackID,
		PlayedAtMS:  c.PlayedAt.UnixMilli(),
		DurationMS:  c.DurationMS,
		Name:        c.Name,
		Artist:      c.Artist,
		ArtistID:    c.ArtistID,
		Album:       c.Album,
		AlbumID:     c.AlbumID,
		ReleaseDate: c.ReleaseDate,
		TotalTracks: c.TotalTracks,
		Popularity:  c.Popularity,
		Explicit:    c.Explicit,
		CollectedAt: c.CollectedAt,
	}
}

func (r row) canonical() play.Canonical {
	return play.Canonical{
		TrackID:     r.TrackID,
		PlayedAt:    time.UnixMilli(r.PlayedAtMS).UTC(),
		DurationMS:  r.DurationMS,
		Name:        r.Name,
		Artist:      r.Artist,
		ArtistID:    r.ArtistID,
		Album:       r.Album,
		AlbumID:     r.AlbumID,
		ReleaseDate: r.ReleaseDate,
		TotalTracks: r.TotalTracks,
		Popularity:  r.Popularity,
		Explicit:    r.Explicit,
		CollectedAt: r.CollectedAt,
	}
}
