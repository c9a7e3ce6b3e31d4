package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"spinlog/internal/core/play"
	perr "spinlog/internal/platform/errors"
	pstrings "spinlog/internal/platform/strings"
)

// RecentlyPlayed fetches the user's playback history, newest first,
// capped at RecentlyPlayedMax items per the API. Each item is flattened
// into the raw record shape the batch files carry: the first listed
// artist is the one kept, and the partition hints plus collection
// timestamp are stamped at fetch time
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]play.Raw, error) {
	if limit <= 0 || limit > RecentlyPlayedMax {
		limit = RecentlyPlayedMax
	}

	resp, err := c.do(ctx, fmt.Sprintf("/v1/me/player/recently-played?limit=%d", limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var page recentlyPlayedPage
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&page); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "spotify recently played decode failed")
	}

	collected := c.now().UTC().Format(time.RFC3339)
	out := make([]play.Raw, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, flatten(item, collected))
	}
	c.log.Info().Int("items", len(out)).Msg("spotify recently played fetched")
	return out, nil
}

// flatten maps one history entry to the raw batch record shape
func flatten(item playedItem, collected string) play.Raw {
	tr := item.Track
	raw := play.Raw{
		TrackID:     pstrings.Ptr(tr.ID),
		Name:        pstrings.Ptr(tr.Name),
		PlayedAt:    pstrings.Ptr(item.PlayedAt),
		Album:       pstrings.Ptr(tr.Album.Name),
		DurationMS:  &tr.DurationMS,
		Popularity:  &tr.Popularity,
		Explicit:    &tr.Explicit,
		AlbumID:     pstrings.Ptr(tr.Album.ID),
		ReleaseDate: pstrings.Ptr(tr.Album.ReleaseDate),
		TotalTracks: &tr.Album.TotalTracks,
		CollectedAt: pstrings.Ptr(collected),
	}
	if len(tr.Artists) > 0 {
		raw.Artist = pstrings.Ptr(tr.Artists[0].Name)
		raw.ArtistID = pstrings.Ptr(tr.Artists[0].ID)
	}
	// legacy partition hints sliced straight off the timestamp text,
	// matching what older batch files carry
	if len(item.PlayedAt) >= 13 {
		raw.PlayedDate = play.HintString(item.PlayedAt[:10])
		raw.PlayedHour = play.HintString(item.PlayedAt[11:13])
	}
	return raw
}
