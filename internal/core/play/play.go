// Package play defines the canonical playback event model and the
// validate, canonicalize, and dedupe stages every raw record passes
// through before it can reach the dataset
package play

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw is one decoded playback object as collected upstream.
// Pointer fields distinguish absent from zero; the partition hints are
// untrusted and never used for partitioning
type Raw struct {
	TrackID     *string    `json:"track_id"`
	Name        *string    `json:"name"`
	Artist      *string    `json:"artist"`
	PlayedAt    *string    `json:"played_at"`
	Album       *string    `json:"album"`
	DurationMS  *int64     `json:"duration_ms"`
	Popularity  *int64     `json:"popularity"`
	Explicit    *bool      `json:"explicit"`
	ArtistID    *string    `json:"artist_id"`
	AlbumID     *string    `json:"album_id"`
	ReleaseDate *string    `json:"release_date"`
	TotalTracks *int64     `json:"total_tracks"`
	PlayedDate  HintString `json:"played_date"`
	PlayedHour  HintString `json:"played_hour"`
	CollectedAt *string    `json:"collection_timestamp"`
}

// HintString tolerates upstream partition hints that arrive as either
// JSON strings or bare numbers; sources have not been consistent about
// which they emit
type HintString string

// UnmarshalJSON implements json.Unmarshaler
func (h *HintString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*h = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*h = HintString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*h = HintString(n.String())
	return nil
}

// Validated is a raw record whose required fields were present and well
// formed. Optional fields stay pointers; required fields are concrete
type Validated struct {
	TrackID    string
	PlayedAt   time.Time
	DurationMS int64

	Name        *string
	Artist      *string
	ArtistID    *string
	Album       *string
	AlbumID     *string
	ReleaseDate *string
	TotalTracks *int64
	Popularity  *int64
	Explicit    *bool
	CollectedAt *string
}

// Key identifies one real world playback: the same track started within
// the same second is the same play no matter how often it was collected
type Key struct {
	TrackID string
	UnixSec int64
}

// PartitionKey addresses one (date, hour) slice of the dataset.
// Both coordinates are UTC and derivable from the storage path alone
type PartitionKey struct {
	Date string // YYYY-MM-DD
	Hour int    // 0..23
}

// String renders the storage path form, date=YYYY-MM-DD/hour=HH
func (p PartitionKey) String() string {
	return fmt.Sprintf("date=%s/hour=%02d", p.Date, p.Hour)
}

// Time returns the UTC start of the partition's hour
func (p PartitionKey) Time() (time.Time, error) {
	t, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("partition date %q: %w", p.Date, err)
	}
	if p.Hour < 0 || p.Hour > 23 {
		return time.Time{}, fmt.Errorf("partition hour %d out of range", p.Hour)
	}
	return t.Add(time.Duration(p.Hour) * time.Hour), nil
}

// ParsePartitionKey parses the date=YYYY-MM-DD/hour=HH path form
func ParsePartitionKey(s string) (PartitionKey, error) {
	rest, ok := strings.CutPrefix(s, "date=")
	if !ok {
		return PartitionKey{}, fmt.Errorf("partition path %q: missing date=", s)
	}
	date, hourPart, ok := strings.Cut(rest, "/hour=")
	if !ok {
		return PartitionKey{}, fmt.Errorf("partition path %q: missing /hour=", s)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return PartitionKey{}, fmt.Errorf("partition path %q: %w", s, err)
	}
	p := PartitionKey{Date: date, Hour: hour}
	if _, err := p.Time(); err != nil {
		return PartitionKey{}, err
	}
	return p, nil
}

// Canonical is the validated, normalized record the dataset stores.
// Construction goes through Canonicalize only
type Canonical struct {
	TrackID    string
	PlayedAt   time.Time // UTC
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

	// CollectedAt is pipeline metadata and does not count toward
	// completeness
	CollectedAt *string
}

// Key derives the deduplication identity
func (c Canonical) Key() Key {
	return Key{TrackID: c.TrackID, UnixSec: c.PlayedAt.Unix()}
}

// Partition derives the partition coordinates from the playback instant
func (c Canonical) Partition() PartitionKey {
	at := c.PlayedAt.UTC()
	return PartitionKey{Date: at.Format("2006-01-02"), Hour: at.Hour()}
}

// Completeness counts the filled optional fields, the measure duplicate
// survivors are ranked by
func (c Canonical) Completeness() int {
	n := 0
	for _, set := range []bool{
		c.Name != nil,
		c.Artist != nil,
		c.ArtistID != nil,
		c.Album != nil,
		c.AlbumID != nil,
		c.ReleaseDate != nil,
		c.TotalTracks != nil,
		c.Popularity != nil,
		c.Explicit != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
