// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"libwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OverlayDir = filepath.Join(base, "overlays")
	cfg.Paths.CollectionsDir = filepath.Join(base, "collections")
	cfg.Plex.URL = "http://plex.test:32400"
	cfg.Plex.Token = "test-token"
	cfg.Plex.MovieLibraries = []string{"Movies"}
	cfg.Plex.TVLibraries = []string{"TV Shows"}
	cfg.Trakt.ClientID = "test-client-id"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWebhook sets the Discord webhook URL on the test config.
func WithWebhook(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Discord.WebhookURL = url
	}
}

// WithLibraries overrides the tracked movie and TV library names.
func WithLibraries(movies, tv []string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Plex.MovieLibraries = movies
		cfg.Plex.TVLibraries = tv
	}
}
