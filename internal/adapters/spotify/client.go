// Package spotify provides a resilient Spotify Web API client for the collector
package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	perr "spinlog/internal/platform/errors"
	"spinlog/internal/platform/logger"
)

const (
	apiURLDefault      = "https://api.spotify.com"
	accountsURLDefault = "https://accounts.spotify.com"
	defaultTimeout     = 10 * time.Second
	defaultUA          = "spinlog-collector"
	defaultMaxRetry    = 5
	defaultRetryBase   = 500 * time.Millisecond

	// RecentlyPlayedMax is the API's hard item cap per request
	RecentlyPlayedMax = 50
)

// Options configures the Client
type Options struct {
	BaseURL     string
	AccountsURL string
	UserAgent   string
	Timeout     time.Duration

	// App credentials plus the long lived refresh token minted once
	// through the user consent flow
	ClientID     string
	ClientSecret string
	RefreshToken string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal Spotify Web API client with refresh token auth
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger

	mu      sync.Mutex
	access  string
	expires time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = apiURLDefault
	}
	if o.AccountsURL == "" {
		o.AccountsURL = accountsURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("spotify"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// token returns a bearer token, refreshing through the accounts service
// when the cached one is missing or about to expire
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.access != "" && c.now().Add(30*time.Second).Before(c.expires) {
		return c.access, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.opts.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.AccountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "spotify token request failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "spotify token exchange failed")
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		// a revoked refresh token needs re-consent; retrying cannot help
		return "", perr.Configf("spotify refresh token rejected with status %d", resp.StatusCode)
	default:
		return "", perr.Newf(perr.ErrorCodeUnavailable, "spotify token endpoint status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tok); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "spotify token decode failed")
	}
	if tok.AccessToken == "" {
		return "", perr.Newf(perr.ErrorCodeUnknown, "spotify token response missing access_token")
	}

	c.access = tok.AccessToken
	c.expires = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.log.Debug().Time("expires", c.expires).Msg("spotify access token refreshed")
	return c.access, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.access = ""
	c.mu.Unlock()
}

// do issues an authenticated GET with retries and rate limit handling
func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		tok, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "spotify new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "spotify do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("spotify transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("spotify http response")

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			return resp, nil
		case http.StatusUnauthorized:
			// expired access token; mint a fresh one and go again
			_ = drainAndClose(resp.Body)
			c.invalidateToken()
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "spotify auth kept failing")
			}
			attempts++
			continue
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.backoff(attempts))
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "spotify rate limited")
			}
			c.log.Warn().Dur("sleep", wait).Msg("spotify rate limited backing off")
			c.sleep(wait)
			attempts++
			continue
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "spotify transient server error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("spotify transient error retrying")
			c.sleep(back)
			attempts++
			continue
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "spotify unexpected status %d body %s", resp.StatusCode, string(body))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	if cap := int64(30 * time.Second / time.Millisecond); ms > cap {
		ms = cap
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

// retryAfter honors the Retry-After header, falling back to fallback
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	if s := h.Get("Retry-After"); s != "" {
		if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return fallback
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
