package chds

import (
	"time"

	"spinlog/internal/core/play"
)

// row mirrors the plays table column set. Nullable columns scan through
// pointer fields so NULL survives a round trip
type row struct {
	TrackID    string
	PlayedAtMS int64
	DurationMS int64

	Name        *string
	Artist      *string
	ArtistID    *string
	Album       *string
	AlbumID     *string
	ReleaseDate *string
	TotalTracks *int64
	Popularity  *int32
	Explicit    *bool
	CollectedAt *string
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
