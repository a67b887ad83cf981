package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlex()
	c.normalizeTrakt()
	c.normalizeDiscord()
	c.normalizeServices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OverlayDir, err = expandPath(c.Paths.OverlayDir); err != nil {
		return fmt.Errorf("paths.overlay_dir: %w", err)
	}
	if c.Paths.CollectionsDir, err = expandPath(c.Paths.CollectionsDir); err != nil {
		return fmt.Errorf("paths.collections_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlex() {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.RequestTimeout <= 0 {
		c.Plex.RequestTimeout = 30
	}
}

func (c *Config) normalizeTrakt() {
	c.Trakt.ClientID = strings.TrimSpace(c.Trakt.ClientID)
	c.Trakt.AccessToken = strings.TrimSpace(c.Trakt.AccessToken)
	c.Trakt.BaseURL = strings.TrimRight(strings.TrimSpace(c.Trakt.BaseURL), "/")
	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = defaultTraktBaseURL
	}
	if strings.TrimSpace(c.Trakt.Timezone) == "" {
		c.Trakt.Timezone = defaultTimezone
	}
	if c.Trakt.RequestTimeout <= 0 {
		c.Trakt.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeDiscord() {
	c.Discord.WebhookURL = strings.TrimSpace(c.Discord.WebhookURL)
	if strings.TrimSpace(c.Discord.Username) == "" {
		c.Discord.Username = defaultWebhookName
	}
	if c.Discord.RequestTimeout <= 0 {
		c.Discord.RequestTimeout = 10
	}
}

func (c *Config) normalizeServices() {
	if strings.TrimSpace(c.Sizes.Schedule) == "" {
		c.Sizes.Schedule = defaultSizesSchedule
	}
	if c.Sizes.Epsilon <= 0 {
		c.Sizes.Epsilon = defaultEpsilonGB
	}
	if strings.TrimSpace(c.Status.Schedule) == "" {
		c.Status.Schedule = defaultStatusSchedule
	}
	if len(c.Status.Colors) == 0 {
		c.Status.Colors = defaultStatusColors()
	} else {
		// Missing keys fall back to defaults so partial color maps work.
		for key, value := range defaultStatusColors() {
			if _, ok := c.Status.Colors[key]; !ok {
				c.Status.Colors[key] = value
			}
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
