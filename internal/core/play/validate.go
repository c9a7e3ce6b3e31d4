package play

import (
	"strings"
	"time"

	perr "spinlog/internal/platform/errors"
)

// Validate checks one decoded raw object and returns its validated form
// or a coded rejection. Checks run in a fixed order so a record failing
// several ways always reports the same reason: required fields present,
// timestamp parses, numeric ranges hold, identifier is non-blank.
// A rejection never aborts the batch; callers accumulate and continue
func Validate(r Raw) (Validated, error) {
	if r.TrackID == nil {
		return Validated{}, missing("track_id")
	}
	if r.PlayedAt == nil {
		return Validated{}, missing("played_at")
	}
	if r.DurationMS == nil {
		return Validated{}, missing("duration_ms")
	}

	at, err := time.Parse(time.RFC3339, *r.PlayedAt)
	if err != nil {
		return Validated{}, perr.WithField(
			perr.Wrapf(err, perr.ErrorCodeMalformedTimestamp, "played_at %q", *r.PlayedAt),
			"played_at")
	}

	if *r.DurationMS < 0 {
		return Validated{}, perr.WithField(
			perr.Newf(perr.ErrorCodeRangeViolation, "duration_ms %d is negative", *r.DurationMS),
			"duration_ms")
	}
	if r.Popularity != nil && (*r.Popularity < 0 || *r.Popularity > 100) {
		return Validated{}, perr.WithField(
			perr.Newf(perr.ErrorCodeRangeViolation, "popularity %d outside [0,100]", *r.Popularity),
			"popularity")
	}

	if strings.TrimSpace(*r.TrackID) == "" {
		return Validated{}, perr.WithField(
			perr.New(perr.ErrorCodeInvalidIdentifier, "track_id is blank"),
			"track_id")
	}

	return Validated{
		TrackID:     *r.TrackID,
		PlayedAt:    at,
		DurationMS:  *r.DurationMS,
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
	}, nil
}

func missing(field string) error {
	return perr.WithField(perr.New(perr.ErrorCodeMissingField, "required field missing"), field)
}
