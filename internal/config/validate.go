package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateTrakt(); err != nil {
		return err
	}
	if err := c.validateDiscord(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlex() error {
	if !c.Sizes.Enabled && !c.Status.Enabled {
		return nil
	}
	if c.Plex.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/libwatch/config.toml"
		}
		return fmt.Errorf("plex.url is required; edit %s (create with 'libwatch config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Plex.URL, "http://") && !strings.HasPrefix(c.Plex.URL, "https://") {
		return fmt.Errorf("plex.url must be an http(s) URL, got %q", c.Plex.URL)
	}
	if c.Plex.Token == "" {
		return errors.New("plex.token is required")
	}
	return nil
}

func (c *Config) validateTrakt() error {
	if !c.Status.Enabled {
		return nil
	}
	if c.Trakt.ClientID == "" {
		return errors.New("trakt.client_id must be set when status.enabled is true")
	}
	if c.Trakt.AccessToken == "" {
		return errors.New("trakt.access_token must be set when status.enabled is true")
	}
	if _, err := time.LoadLocation(c.Trakt.Timezone); err != nil {
		return fmt.Errorf("trakt.timezone %q is not a valid IANA timezone: %w", c.Trakt.Timezone, err)
	}
	return nil
}

func (c *Config) validateDiscord() error {
	if c.Discord.WebhookURL == "" {
		return nil
	}
	if !strings.HasPrefix(c.Discord.WebhookURL, "http://") && !strings.HasPrefix(c.Discord.WebhookURL, "https://") {
		return fmt.Errorf("discord.webhook_url must be an http(s) URL, got %q", c.Discord.WebhookURL)
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.Sizes.Epsilon < 0 {
		return errors.New("sizes.epsilon must not be negative")
	}
	if c.Sizes.Enabled && strings.TrimSpace(c.Sizes.Schedule) == "" {
		return errors.New("sizes.schedule must be set when sizes.enabled is true")
	}
	if c.Status.Enabled && strings.TrimSpace(c.Status.Schedule) == "" {
		return errors.New("status.schedule must be set when status.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
