package play

import (
	"strings"
	"time"

	"spinlog/internal/core/textnorm"
	pstr "spinlog/internal/platform/strings"
)

// Canonicalize produces the canonical form of a validated record.
// The playback instant is normalized to UTC, display text runs through
// the metadata normalizer, and blank optionals collapse to nil so they
// never count toward completeness. Pure: identical input always yields
// identical output, and the input is never mutated
func Canonicalize(v Validated) Canonical {
	return Canonical{
		TrackID:     strings.TrimSpace(v.TrackID),
		PlayedAt:    v.PlayedAt.UTC(),
		DurationMS:  v.DurationMS,
		Name:        cleanText(v.Name),
		Artist:      cleanText(v.Artist),
		ArtistID:    cleanIdent(v.ArtistID),
		Album:       cleanText(v.Album),
		AlbumID:     cleanIdent(v.AlbumID),
		ReleaseDate: cleanReleaseDate(v.ReleaseDate),
		TotalTracks: v.TotalTracks,
		Popularity:  pop32(v.Popularity),
		Explicit:    v.Explicit,
		CollectedAt: cleanIdent(v.CollectedAt),
	}
}

// cleanText normalizes display text and collapses blanks to nil
func cleanText(p *string) *string {
	if p == nil {
		return nil
	}
	return pstr.Ptr(textnorm.Clean(*p))
}

// cleanIdent trims identifiers and date strings without touching their
// content; they are opaque tokens, not display text
func cleanIdent(p *string) *string {
	if p == nil {
		return nil
	}
	return pstr.Ptr(strings.TrimSpace(*p))
}

// cleanReleaseDate keeps the upstream value verbatim unless it is a full
// calendar date, which is reformatted to zero padded YYYY-MM-DD. Year and
// year-month precision pass through; there is no date to invent
func cleanReleaseDate(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if t, err := time.Parse("2006-1-2", s); err == nil {
		return pstr.Ptr(t.Format("2006-01-02"))
	}
	return pstr.Ptr(s)
}

func pop32(p *int64) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}
