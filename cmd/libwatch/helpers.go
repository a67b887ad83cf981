package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"libwatch/internal/config"
	"libwatch/internal/daemon"
	"libwatch/internal/notifications"
	"libwatch/internal/runlog"
	"libwatch/internal/services/plex"
	"libwatch/internal/services/trakt"
	"libwatch/internal/sizes"
	"libwatch/internal/status"
)

func httpClient(timeoutSeconds int) *http.Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

func newPlexService(cfg *config.Config) (plex.Service, error) {
	return plex.New(cfg.Plex.URL, cfg.Plex.Token,
		plex.WithHTTPClient(httpClient(cfg.Plex.RequestTimeout)))
}

func newTraktService(cfg *config.Config) (trakt.Service, error) {
	opts := []trakt.Option{trakt.WithHTTPClient(httpClient(cfg.Trakt.RequestTimeout))}
	if cfg.Trakt.BaseURL != "" {
		opts = append(opts, trakt.WithBaseURL(cfg.Trakt.BaseURL))
	}
	return trakt.New(cfg.Trakt.ClientID, cfg.Trakt.AccessToken, opts...)
}

// newRunFunc wires the watcher for one domain. The run history store
// may be nil when the database could not be opened.
func newRunFunc(domain string, cfg *config.Config, logger *slog.Logger, runs *runlog.Store) (func(ctx context.Context) (runlog.Entry, error), error) {
	plexSvc, err := newPlexService(cfg)
	if err != nil {
		return nil, fmt.Errorf("plex client: %w", err)
	}
	notifier := notifications.NewService(cfg)

	switch domain {
	case sizes.Domain:
		runner := sizes.NewRunner(cfg, logger, plexSvc, notifier, runs)
		return runner.Run, nil
	case status.Domain:
		traktSvc, err := newTraktService(cfg)
		if err != nil {
			return nil, fmt.Errorf("trakt client: %w", err)
		}
		runner := status.NewRunner(cfg, logger, plexSvc, traktSvc, notifier, runs)
		return runner.Run, nil
	default:
		return nil, fmt.Errorf("unknown domain %q", domain)
	}
}

// buildJobs assembles the scheduled jobs for every enabled watcher.
func buildJobs(cfg *config.Config, logger *slog.Logger, runs *runlog.Store) ([]daemon.Job, error) {
	var jobs []daemon.Job
	if cfg.Sizes.Enabled {
		run, err := newRunFunc(sizes.Domain, cfg, logger, runs)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, daemon.Job{Domain: sizes.Domain, Schedule: cfg.Sizes.Schedule, Run: run})
	}
	if cfg.Status.Enabled {
		run, err := newRunFunc(status.Domain, cfg, logger, runs)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, daemon.Job{Domain: status.Domain, Schedule: cfg.Status.Schedule, Run: run})
	}
	if len(jobs) == 0 {
		return nil, errors.New("no watchers enabled in configuration")
	}
	return jobs, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
