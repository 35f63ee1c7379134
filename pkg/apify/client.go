// Package apify provides a client for the Apify actor platform, covering the
// three actors the pipeline depends on: Google Places discovery, Google
// search, and lightweight page fetching.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Apify v2 API.
const defaultBaseURL = "https://api.apify.com/v2"

// Actor identifiers. The Apify API addresses actors as {user}~{name}.
const (
	placesActor = "compass~crawler-google-places"
	searchActor = "apify~google-search-scraper"
	fetchActor  = "apify~cheerio-scraper"
)

// Client defines the Apify actor operations used by the pipeline. Each call
// runs the actor synchronously and returns its default dataset items.
type Client interface {
	SearchPlaces(ctx context.Context, req PlacesRequest) ([]PlaceItem, error)
	SearchOrganic(ctx context.Context, req SearchRequest) ([]SearchResultItem, error)
	FetchPages(ctx context.Context, req FetchRequest) ([]PageItem, error)
}

// PlacesRequest is the input for the Google Places crawler actor.
type PlacesRequest struct {
	SearchStringsArray        []string `json:"searchStringsArray"`
	LocationQuery             string   `json:"locationQuery"`
	MaxCrawledPlacesPerSearch int      `json:"maxCrawledPlacesPerSearch,omitempty"`
	Language                  string   `json:"language,omitempty"`
}

// PlaceItem is one place record from the places crawler dataset.
type PlaceItem struct {
	Title        string        `json:"title"`
	Website      string        `json:"website"`
	CategoryName string        `json:"categoryName"`
	Address      string        `json:"address"`
	Phone        string        `json:"phone"`
	Location     PlaceLocation `json:"location"`
}

// PlaceLocation holds the place coordinates.
type PlaceLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchRequest is the input for the Google search scraper actor.
// Queries holds one query per line.
type SearchRequest struct {
	Queries          string `json:"queries"`
	CountryCode      string `json:"countryCode,omitempty"`
	LanguageCode     string `json:"languageCode,omitempty"`
	MaxPagesPerQuery int    `json:"maxPagesPerQuery,omitempty"`
}

// SearchResultItem is the per-query result record from the search scraper.
type SearchResultItem struct {
	SearchQuery    SearchQuery     `json:"searchQuery"`
	OrganicResults []OrganicResult `json:"organicResults"`
}

// SearchQuery echoes the query a result record belongs to.
type SearchQuery struct {
	Term string `json:"term"`
}

// OrganicResult is one organic search hit.
type OrganicResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// FetchRequest is the input for the cheerio scraper actor.
type FetchRequest struct {
	StartURLs          []StartURL  `json:"startUrls"`
	MaxRequestRetries  int         `json:"maxRequestRetries"`
	ProxyConfiguration ProxyConfig `json:"proxyConfiguration"`
	IgnoreSSLErrors    bool        `json:"ignoreSslErrors"`
	PageFunction       string      `json:"pageFunction"`
}

// StartURL wraps a URL to fetch.
type StartURL struct {
	URL string `json:"url"`
}

// ProxyConfig selects the actor's egress proxy.
type ProxyConfig struct {
	UseApifyProxy bool `json:"useApifyProxy"`
}

// PageItem is one fetched page from the cheerio scraper dataset.
type PageItem struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the outbound actor-call rate limit.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Apify client. Actor runs are synchronous and can
// take minutes, so the HTTP timeout is generous.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchPlaces(ctx context.Context, req PlacesRequest) ([]PlaceItem, error) {
	var items []PlaceItem
	if err := c.runActor(ctx, placesActor, req, &items); err != nil {
		return nil, eris.Wrap(err, "apify: search places")
	}
	return items, nil
}

func (c *httpClient) SearchOrganic(ctx context.Context, req SearchRequest) ([]SearchResultItem, error) {
	var items []SearchResultItem
	if err := c.runActor(ctx, searchActor, req, &items); err != nil {
		return nil, eris.Wrap(err, "apify: search organic")
	}
	return items, nil
}

func (c *httpClient) FetchPages(ctx context.Context, req FetchRequest) ([]PageItem, error) {
	var items []PageItem
	if err := c.runActor(ctx, fetchActor, req, &items); err != nil {
		return nil, eris.Wrap(err, "apify: fetch pages")
	}
	return items, nil
}

// runActor POSTs input to run-sync-get-dataset-items, which blocks until the
// actor run finishes and responds with the dataset items directly.
func (c *httpClient) runActor(ctx context.Context, actorID string, input any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	buf, err := json.Marshal(input)
	if err != nil {
		return eris.Wrap(err, "marshal input")
	}

	url := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, actorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode dataset items")
	}

	return nil
}
