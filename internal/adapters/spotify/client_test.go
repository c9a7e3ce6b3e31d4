package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	perr "spinlog/internal/platform/errors"
)

func tokenHandler(t *testing.T, grants *atomic.Int32, access string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			t.Errorf("missing or wrong basic auth: %q %q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt" {
			t.Errorf("refresh_token = %q", got)
		}
		grants.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": access,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}
}

func newTestClient(t *testing.T, api, accounts string) *Client {
	t.Helper()
	c := NewClient(Options{
		BaseURL:      api,
		AccountsURL:  accounts,
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "rt",
		MaxRetries:   3,
		RetryBase:    time.Millisecond,
	})
	c.sleep = func(time.Duration) {}
	return c
}

const samplePage = `{
  "items": [
    {
      "played_at": "2025-08-20T22:31:46.123Z",
      "track": {
        "id": "T1",
        "name": "Song",
        "duration_ms": 200040,
        "popularity": 61,
        "explicit": false,
        "artists": [{"id": "A1", "name": "Band"}, {"id": "A2", "name": "Guest"}],
        "album": {"id": "AL1", "name": "LP", "release_date": "2020-01-01", "total_tracks": 12}
      }
    }
  ],
  "next": ""
}`

func TestRecentlyPlayed_MapsItems(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	accounts := httptest.NewServer(tokenHandler(t, &grants, "tok-1"))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer api.Close()

	c := newTestClient(t, api.URL, accounts.URL)
	recs, err := c.RecentlyPlayed(context.Background(), 0)
	if err != nil {
		t.Fatalf("RecentlyPlayed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}

	r := recs[0]
	if r.TrackID == nil || *r.TrackID != "T1" {
		t.Fatalf("track_id not mapped: %+v", r)
	}
	if r.Artist == nil || *r.Artist != "Band" || r.ArtistID == nil || *r.ArtistID != "A1" {
		t.Fatalf("first listed artist must win: %+v", r)
	}
	if r.DurationMS == nil || *r.DurationMS != 200040 {
		t.Fatalf("duration not mapped: %+v", r)
	}
	if r.Album == nil || *r.Album != "LP" || r.TotalTracks == nil || *r.TotalTracks != 12 {
		t.Fatalf("album not mapped: %+v", r)
	}
	if string(r.PlayedDate) != "2025-08-20" || string(r.PlayedHour) != "22" {
		t.Fatalf("partition hints not sliced from played_at: %q %q", r.PlayedDate, r.PlayedHour)
	}
	if r.CollectedAt == nil {
		t.Fatal("collection timestamp missing")
	}
	if _, err := time.Parse(time.RFC3339, *r.CollectedAt); err != nil {
		t.Fatalf("collection timestamp not RFC3339: %q", *r.CollectedAt)
	}
}

func TestRecentlyPlayed_TokenCachedAcrossCalls(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	accounts := httptest.NewServer(tokenHandler(t, &grants, "tok-1"))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer api.Close()

	c := newTestClient(t, api.URL, accounts.URL)
	for range 3 {
		if _, err := c.RecentlyPlayed(context.Background(), 10); err != nil {
			t.Fatalf("RecentlyPlayed: %v", err)
		}
	}
	if got := grants.Load(); got != 1 {
		t.Fatalf("expected one token grant, got %d", got)
	}
}

func TestRecentlyPlayed_ReauthsOnUnauthorized(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := grants.Add(1)
		tok := "stale"
		if n > 1 {
			tok = "fresh"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "expires_in": 3600})
	}))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer api.Close()

	c := newTestClient(t, api.URL, accounts.URL)
	if _, err := c.RecentlyPlayed(context.Background(), 10); err != nil {
		t.Fatalf("RecentlyPlayed after reauth: %v", err)
	}
	if got := grants.Load(); got != 2 {
		t.Fatalf("expected a second token grant, got %d", got)
	}
}

func TestRecentlyPlayed_HonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	accounts := httptest.NewServer(tokenHandler(t, &grants, "tok-1"))
	defer accounts.Close()

	var calls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer api.Close()

	c := newTestClient(t, api.URL, accounts.URL)
	var slept time.Duration
	c.sleep = func(d time.Duration) { slept += d }

	if _, err := c.RecentlyPlayed(context.Background(), 10); err != nil {
		t.Fatalf("RecentlyPlayed: %v", err)
	}
	if slept != 7*time.Second {
		t.Fatalf("Retry-After not honored, slept %v", slept)
	}
}

func TestToken_RevokedRefreshTokenIsTerminal(t *testing.T) {
	t.Parallel()

	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer accounts.Close()

	c := newTestClient(t, "http://unused.invalid", accounts.URL)
	_, err := c.RecentlyPlayed(context.Background(), 10)
	if perr.CodeOf(err) != perr.ErrorCodeConfig {
		t.Fatalf("revoked refresh token must be a config error, got %v", err)
	}
	if perr.Retryable(err) {
		t.Fatal("revoked refresh token must not be retryable")
	}
}

func TestRecentlyPlayed_NoContent(t *testing.T) {
	t.Parallel()

	var grants atomic.Int32
	accounts := httptest.NewServer(tokenHandler(t, &grants, "tok-1"))
	defer accounts.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	c := newTestClient(t, api.URL, accounts.URL)
	recs, err := c.RecentlyPlayed(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentlyPlayed: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("no playback history must yield no records, got %d", len(recs))
	}
}
