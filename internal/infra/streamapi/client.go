package streamapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the streaming backend base URL
	DefaultBaseURL = "http://localhost:8000"

	// DefaultUserAgent identifies the backend to the streaming API
	DefaultUserAgent = "RythmTune/0.3.0 (https://github.com/rythmtune/rythmtune-backend)"

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimit - keep well below the upstream service's threshold
	DefaultRateLimit = 10 // 10 requests per second

	// DefaultStreamCacheTTL matches the upstream's own URL cache window
	DefaultStreamCacheTTL = time.Hour
)

// Client talks to the remote media-streaming API. It resolves track IDs to
// playable URLs and serves search, charts, suggestions and related lookups.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
	cache      *streamCache
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithStreamCacheTTL overrides how long resolved stream URLs are cached.
func WithStreamCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newStreamCache(ttl)
	}
}

// NewClient creates a new streaming API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newRateLimiter(DefaultRateLimit),
		cache:   newStreamCache(DefaultStreamCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve fetches the playable stream URL and canonical metadata for a track.
// Returns ErrUnplayable when the response carries no URL.
func (c *Client) Resolve(ctx context.Context, trackID string) (*StreamInfo, error) {
	if info, ok := c.cache.Get(trackID); ok {
		log.Debug().Str("trackID", trackID).Msg("Stream info served from cache")
		return &info, nil
	}

	var info StreamInfo
	if err := c.getJSON(ctx, "/stream/"+url.PathEscape(trackID), &info); err != nil {
		return nil, err
	}

	if info.URL == "" {
		return nil, ErrUnplayable
	}

	c.cache.Put(trackID, info)

	log.Debug().
		Str("trackID", trackID).
		Str("title", info.Title).
		Msg("Stream URL resolved")
	return &info, nil
}

// Related returns tracks related to the given seed track. Best effort: any
// failure yields an empty slice, never an error.
func (c *Client) Related(ctx context.Context, trackID string) []TrackRecord {
	var records []TrackRecord
	if err := c.getJSON(ctx, "/related/"+url.PathEscape(trackID), &records); err != nil {
		log.Warn().Err(err).Str("trackID", trackID).Msg("Related fetch failed")
		return nil
	}

	log.Debug().
		Str("trackID", trackID).
		Int("count", len(records)).
		Msg("Related tracks fetched")
	return records
}

// Search returns tracks matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]TrackRecord, error) {
	var records []TrackRecord
	path := "/search?q=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Charts returns the current trending tracks.
func (c *Client) Charts(ctx context.Context) ([]TrackRecord, error) {
	var records []TrackRecord
	if err := c.getJSON(ctx, "/charts", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Suggestions returns search suggestions for a partial query. An empty query
// yields the service's genre shelf.
func (c *Client) Suggestions(ctx context.Context, query string) (*Suggestions, error) {
	var s Suggestions
	path := "/suggestions?q=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Artist returns metadata for an artist page.
func (c *Client) Artist(ctx context.Context, browseID string) (*ArtistInfo, error) {
	var a ArtistInfo
	if err := c.getJSON(ctx, "/artist/"+url.PathEscape(browseID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// getJSON performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		log.Warn().Str("path", path).Msg("Streaming API rate limit exceeded")
		return ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Streaming API temporary error")
		return ErrTemporaryFailure
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	return nil
}
