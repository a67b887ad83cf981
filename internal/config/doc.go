// Package config loads, normalizes, and validates libwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: Plex and Trakt credentials, the Discord webhook,
// service schedules, and Kometa overlay styles.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
