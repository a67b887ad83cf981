// Package trakt provides a read-only client for the Trakt.tv API v2
// covering the show metadata the status watcher needs: show lookup by
// TMDB id, full show details, season summaries, and the next/last
// episode endpoints.
package trakt

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

// DefaultBaseURL is the public Trakt API endpoint.
const DefaultBaseURL = "https://api.trakt.tv"

const (
	maxAttempts   = 3
	maxRetryDelay = 10 * time.Second
)

// IDs carries the identifier set Trakt returns for a show.
type IDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug"`
	TMDB  int64  `json:"tmdb"`
}

// Show is a Trakt show with extended metadata. Status is one of
// Trakt's lifecycle strings ("returning series", "ended", "canceled",
// "in production", ...). FirstAired is RFC 3339 or empty.
type Show struct {
	Title         string `json:"title"`
	Year          int    `json:"year"`
	Status        string `json:"status"`
	FirstAired    string `json:"first_aired"`
	AiredEpisodes int    `json:"aired_episodes"`
	IDs           IDs    `json:"ids"`
}

// Episode is one episode with its air date. EpisodeType is Trakt's
// placement marker ("season_premiere", "mid_season_finale",
// "season_finale", "series_finale", or "standard").
type Episode struct {
	Season      int    `json:"season"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	FirstAired  string `json:"first_aired"`
	EpisodeType string `json:"episode_type"`
}

// Service defines the Trakt operations used by the status watcher.
type Service interface {
	ShowByTMDB(ctx context.Context, tmdbID int64) (*Show, error)
	Show(ctx context.Context, id string) (*Show, error)
	NextEpisode(ctx context.Context, id string) (*Episode, error)
}

// Client talks to the Trakt API.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	httpClient  *http.Client
	sleep       func(context.Context, time.Duration) error
}

var _ Service = (*Client)(nil)

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

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// New creates a Trakt client. The access token is optional; all
// endpoints used here accept client-id-only authentication.
func New(clientID, accessToken string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("trakt client id required")
	}
	client := &Client{
		baseURL:     DefaultBaseURL,
		clientID:    clientID,
		accessToken: strings.TrimSpace(accessToken),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type searchResult struct {
	Show *Show `json:"show"`
}

// ShowByTMDB resolves a TMDB show id to its Trakt show entry. Returns
// nil when Trakt has no matching show.
func (c *Client) ShowByTMDB(ctx context.Context, tmdbID int64) (*Show, error) {
	if tmdbID <= 0 {
		return nil, errors.New("tmdb id required")
	}
	path := fmt.Sprintf("/search/tmdb/%d", tmdbID)
	var results []searchResult
	found, err := c.getJSON(ctx, path, url.Values{"type": {"show"}}, &results)
	if err != nil {
		return nil, err
	}
	if !found || len(results) == 0 || results[0].Show == nil {
		return nil, nil
	}
	return results[0].Show, nil
}

// Show fetches full details for a show by Trakt id or slug.
func (c *Client) Show(ctx context.Context, id string) (*Show, error) {
	var show Show
	path := "/shows/" + url.PathEscape(id)
	found, err := c.getJSON(ctx, path, url.Values{"extended": {"full"}}, &show)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &show, nil
}

// NextEpisode returns the next scheduled episode, or nil when the show
// has none on the calendar.
func (c *Client) NextEpisode(ctx context.Context, id string) (*Episode, error) {
	var episode Episode
	path := fmt.Sprintf("/shows/%s/next_episode", url.PathEscape(id))
	found, err := c.getJSON(ctx, path, url.Values{"extended": {"full"}}, &episode)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &episode, nil
}

// getJSON performs a GET with Trakt headers, retrying on 429 with the
// server-provided delay. The bool result is false when the resource
// does not exist (404) or has no content (204).
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return false, fmt.Errorf("parse trakt url: %w", err)
	}
	if params != nil {
		endpoint.RawQuery = params.Encode()
	}

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return false, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("trakt-api-version", "2")
		req.Header.Set("trakt-api-key", c.clientID)
		if c.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}

		requestStart := time.Now()
		resp, err := c.httpClient.Do(req)
		latency := time.Since(requestStart)
		if err != nil {
			return false, fmt.Errorf("execute request (latency=%v): %w", latency, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return false, fmt.Errorf("decode trakt response: %w", err)
			}
			return true, nil
		case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return false, nil
		case resp.StatusCode == http.StatusTooManyRequests && attempt < maxAttempts:
			delay := retryDelay(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			if err := c.sleep(ctx, delay); err != nil {
				return false, err
			}
		default:
			resp.Body.Close()
			return false, fmt.Errorf("trakt %s returned %d (latency=%v)", path, resp.StatusCode, latency)
		}
	}
}

func retryDelay(header string) time.Duration {
	delay := time.Second
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		delay = time.Duration(seconds) * time.Second
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
