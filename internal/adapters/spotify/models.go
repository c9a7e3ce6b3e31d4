package spotify

// tokenResponse is the accounts service token grant payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// recentlyPlayedPage is the recently-played endpoint envelope
type recentlyPlayedPage struct {
	Items []playedItem `json:"items"`
	Next  string       `json:"next"`
}

// playedItem is one playback history entry
type playedItem struct {
	PlayedAt string      `json:"played_at"`
	Track    trackObject `json:"track"`
}

type trackObject struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	DurationMS int64          `json:"duration_ms"`
	Popularity int64          `json:"popularity"`
	Explicit   bool           `json:"explicit"`
	Artists    []artistObject `json:"artists"`
	Album      albumObject    `json:"album"`
}

type artistObject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type albumObject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int64  `json:"total_tracks"`
}
