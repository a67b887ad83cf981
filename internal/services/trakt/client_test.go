package trakt_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"libwatch/internal/services/trakt"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *trakt.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := trakt.New("client-id", "access-token",
		trakt.WithBaseURL(server.URL),
		trakt.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	trakt.SetSleep(client, func(context.Context, time.Duration) error { return nil })
	return client
}

func TestNewRequiresClientID(t *testing.T) {
	if _, err := trakt.New("", ""); err == nil {
		t.Fatal("expected error for missing client id")
	}
}

func TestShowByTMDB(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tmdb/4567" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "show" {
			t.Errorf("type param = %q", got)
		}
		if got := r.Header.Get("trakt-api-version"); got != "2" {
			t.Errorf("api version header = %q", got)
		}
		if got := r.Header.Get("trakt-api-key"); got != "client-id" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access-token" {
			t.Errorf("authorization header = %q", got)
		}
		w.Write([]byte(`[{"show":{"title":"Severance","year":2022,"ids":{"trakt":170407,"slug":"severance","tmdb":4567}}}]`))
	})

	show, err := client.ShowByTMDB(context.Background(), 4567)
	if err != nil {
		t.Fatalf("ShowByTMDB() error: %v", err)
	}
	if show == nil || show.IDs.Slug != "severance" {
		t.Fatalf("show = %+v", show)
	}
}

func TestShowByTMDBNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	show, err := client.ShowByTMDB(context.Background(), 999)
	if err != nil {
		t.Fatalf("ShowByTMDB() error: %v", err)
	}
	if show != nil {
		t.Fatalf("expected nil show, got %+v", show)
	}
}

func TestShowExtendedDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shows/severance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("extended"); got != "full" {
			t.Errorf("extended param = %q", got)
		}
		w.Write([]byte(`{"title":"Severance","status":"returning series","first_aired":"2022-02-18T08:00:00.000Z","aired_episodes":19}`))
	})

	show, err := client.Show(context.Background(), "severance")
	if err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if show.Status != "returning series" || show.AiredEpisodes != 19 {
		t.Fatalf("show = %+v", show)
	}
}

func TestNextEpisodeNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	episode, err := client.NextEpisode(context.Background(), "ended-show")
	if err != nil {
		t.Fatalf("NextEpisode() error: %v", err)
	}
	if episode != nil {
		t.Fatalf("expected nil episode, got %+v", episode)
	}
}

func TestNextEpisode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shows/severance/next_episode" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"season":3,"number":1,"title":"TBA","first_aired":"2026-01-09T08:00:00.000Z","episode_type":"season_premiere"}`))
	})

	episode, err := client.NextEpisode(context.Background(), "severance")
	if err != nil {
		t.Fatalf("NextEpisode() error: %v", err)
	}
	if episode == nil || episode.Season != 3 || episode.Number != 1 {
		t.Fatalf("episode = %+v", episode)
	}
	if episode.EpisodeType != "season_premiere" {
		t.Errorf("episode type = %q", episode.EpisodeType)
	}
}

func TestShow404ReturnsNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	show, err := client.Show(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Show() error: %v", err)
	}
	if show != nil {
		t.Fatalf("expected nil show, got %+v", show)
	}
}

func TestRateLimitRetry(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"title":"Severance"}`))
	})

	show, err := client.Show(context.Background(), "severance")
	if err != nil {
		t.Fatalf("Show() error after retries: %v", err)
	}
	if show == nil || show.Title != "Severance" {
		t.Fatalf("show = %+v", show)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRateLimitGivesUp(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := client.Show(context.Background(), "severance"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}
