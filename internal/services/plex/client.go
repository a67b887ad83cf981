// Package plex provides a read-only client for the Plex Media Server
// HTTP API: library sections, per-item media sizes, and show listings
// with external identifiers.
package plex

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

// Library describes one Plex library section.
type Library struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// ItemSize is the aggregated on-disk footprint of one library item. For
// show libraries Episodes carries the number of episode files summed.
type ItemSize struct {
	Title    string
	Bytes    int64
	Episodes int
}

// Show is a series entry with its TMDB identifier when Plex knows one.
type Show struct {
	RatingKey string
	Title     string
	Year      int
	TMDBID    int64
}

// Service defines the Plex operations used by the watch runners.
type Service interface {
	Libraries(ctx context.Context) ([]Library, error)
	MovieSizes(ctx context.Context, sectionKey string) ([]ItemSize, error)
	ShowSizes(ctx context.Context, sectionKey string) ([]ItemSize, error)
	Shows(ctx context.Context, sectionKey string) ([]Show, error)
}

// Client talks to a Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
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

// New creates a Plex client.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("plex base url required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("plex token required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type mediaPart struct {
	Size int64 `json:"size"`
}

type mediaEntry struct {
	Part []mediaPart `json:"Part"`
}

type metadataEntry struct {
	RatingKey        string       `json:"ratingKey"`
	Title            string       `json:"title"`
	GrandparentTitle string       `json:"grandparentTitle"`
	Year             int          `json:"year"`
	Media            []mediaEntry `json:"Media"`
	GUIDs            []struct {
		ID string `json:"id"`
	} `json:"Guid"`
}

type mediaContainer struct {
	MediaContainer struct {
		Directory []Library       `json:"Directory"`
		Metadata  []metadataEntry `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Libraries returns every library section on the server.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	var payload mediaContainer
	if err := c.getJSON(ctx, "/library/sections", nil, &payload); err != nil {
		return nil, err
	}
	return payload.MediaContainer.Directory, nil
}

// MovieSizes returns the on-disk size of every movie in the section,
// summed across all media versions and parts.
func (c *Client) MovieSizes(ctx context.Context, sectionKey string) ([]ItemSize, error) {
	var payload mediaContainer
	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionKey))
	if err := c.getJSON(ctx, path, url.Values{"type": {"1"}}, &payload); err != nil {
		return nil, err
	}

	sizes := make([]ItemSize, 0, len(payload.MediaContainer.Metadata))
	for _, item := range payload.MediaContainer.Metadata {
		sizes = append(sizes, ItemSize{
			Title: item.Title,
			Bytes: sumParts(item.Media),
		})
	}
	return sizes, nil
}

// ShowSizes returns per-show aggregates for the section: every episode
// file's size summed under its grandparent show title, plus the episode
// count. The section is queried at episode granularity (type=4) so one
// request covers the whole library.
func (c *Client) ShowSizes(ctx context.Context, sectionKey string) ([]ItemSize, error) {
	var payload mediaContainer
	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionKey))
	if err := c.getJSON(ctx, path, url.Values{"type": {"4"}}, &payload); err != nil {
		return nil, err
	}

	order := make([]string, 0)
	totals := make(map[string]*ItemSize)
	for _, episode := range payload.MediaContainer.Metadata {
		title := strings.TrimSpace(episode.GrandparentTitle)
		if title == "" {
			continue
		}
		agg, ok := totals[title]
		if !ok {
			agg = &ItemSize{Title: title}
			totals[title] = agg
			order = append(order, title)
		}
		agg.Bytes += sumParts(episode.Media)
		agg.Episodes++
	}

	sizes := make([]ItemSize, 0, len(order))
	for _, title := range order {
		sizes = append(sizes, *totals[title])
	}
	return sizes, nil
}

// Shows lists the section's series with TMDB identifiers resolved from
// Plex GUIDs where present.
func (c *Client) Shows(ctx context.Context, sectionKey string) ([]Show, error) {
	var payload mediaContainer
	path := fmt.Sprintf("/library/sections/%s/all", url.PathEscape(sectionKey))
	if err := c.getJSON(ctx, path, url.Values{"includeGuids": {"1"}}, &payload); err != nil {
		return nil, err
	}

	shows := make([]Show, 0, len(payload.MediaContainer.Metadata))
	for _, item := range payload.MediaContainer.Metadata {
		show := Show{
			RatingKey: item.RatingKey,
			Title:     item.Title,
			Year:      item.Year,
		}
		for _, guid := range item.GUIDs {
			if id, ok := strings.CutPrefix(guid.ID, "tmdb://"); ok {
				if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
					show.TMDBID = parsed
				}
				break
			}
		}
		shows = append(shows, show)
	}
	return shows, nil
}

func sumParts(media []mediaEntry) int64 {
	var total int64
	for _, m := range media {
		for _, part := range m.Part {
			total += part.Size
		}
	}
	return total
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse plex url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plex %s returned %d (latency=%v)", path, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode plex response: %w", err)
	}
	return nil
}
