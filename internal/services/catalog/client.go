package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Release represents a single catalog search match.
type Release struct {
	ID            int64   `json:"id"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	Label         string  `json:"label"`
	Year          string  `json:"year"`
	CatalogNumber string  `json:"catalog_number"`
	Country       string  `json:"country"`
	Format        string  `json:"format"`
	Score         float64 `json:"score"`
}

// Response models the paginated catalog search response.
type Response struct {
	Page         int       `json:"page"`
	Results      []Release `json:"results"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
}

// SearchOptions contains optional filters for a release search.
type SearchOptions struct {
	Year          int    `json:"year,omitempty"`
	Label         string `json:"label,omitempty"`
	CatalogNumber string `json:"catalog_number,omitempty"`
}

// Searcher defines the catalog operations used by enrichment.
type Searcher interface {
	SearchReleases(ctx context.Context, artist, album string, opts SearchOptions) (*Response, error)
	GetRelease(ctx context.Context, releaseID int64) (*Release, error)
}

// Client provides access to the catalog API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a catalog client.
func New(apiKey, baseURL string, timeoutSeconds int, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("catalog api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	timeout := 10 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchReleases searches the catalog for releases matching artist and album.
func (c *Client) SearchReleases(ctx context.Context, artist, album string, opts SearchOptions) (*Response, error) {
	artist = strings.TrimSpace(artist)
	album = strings.TrimSpace(album)
	if artist == "" && album == "" {
		return nil, errors.New("artist or album required")
	}
	endpoint, err := url.Parse(c.baseURL + "/releases/search")
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if artist != "" {
		params.Set("artist", artist)
	}
	if album != "" {
		params.Set("album", album)
	}
	if opts.Year > 0 {
		params.Set("year", strconv.Itoa(opts.Year))
	}
	if label := strings.TrimSpace(opts.Label); label != "" {
		params.Set("label", label)
	}
	if catno := strings.TrimSpace(opts.CatalogNumber); catno != "" {
		params.Set("catalog_number", catno)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return &payload, nil
}

// GetRelease fetches release details by catalog ID.
func (c *Client) GetRelease(ctx context.Context, releaseID int64) (*Release, error) {
	if releaseID <= 0 {
		return nil, errors.New("release id must be positive")
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/releases/%d", c.baseURL, releaseID))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog release fetch returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload Release
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &payload, nil
}
