package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	LogDir         string `toml:"log_dir"`
	OverlayDir     string `toml:"overlay_dir"`
	CollectionsDir string `toml:"collections_dir"`
}

// Plex contains configuration for the Plex Media Server connection.
type Plex struct {
	URL            string   `toml:"url"`
	Token          string   `toml:"token"`
	MovieLibraries []string `toml:"movie_libraries"`
	TVLibraries    []string `toml:"tv_libraries"`
	AnimeLibraries []string `toml:"anime_libraries"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Trakt contains configuration for the Trakt API.
type Trakt struct {
	ClientID       string `toml:"client_id"`
	AccessToken    string `toml:"access_token"`
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	RequestTimeout int    `toml:"request_timeout"`
	Timezone       string `toml:"timezone"`
}

// Discord contains configuration for webhook notifications.
type Discord struct {
	WebhookURL     string `toml:"webhook_url"`
	Username       string `toml:"username"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Sizes contains configuration for the library size tracking service.
type Sizes struct {
	Enabled          bool    `toml:"enabled"`
	Schedule         string  `toml:"schedule"`
	Epsilon          float64 `toml:"epsilon"`
	ShowEpisodeCount bool    `toml:"show_episode_count"`
}

// Status contains configuration for the show status tracking service.
type Status struct {
	Enabled  bool              `toml:"enabled"`
	Schedule string            `toml:"schedule"`
	Colors   map[string]string `toml:"colors"`
}

// OverlayStyle describes the Kometa overlay text box for one overlay kind.
type OverlayStyle struct {
	FontSize         int    `toml:"font_size"`
	FontColor        string `toml:"font_color"`
	FontPath         string `toml:"font_path"`
	BackColor        string `toml:"back_color"`
	BackWidth        int    `toml:"back_width"`
	BackHeight       int    `toml:"back_height"`
	HorizontalAlign  string `toml:"horizontal_align"`
	HorizontalOffset int    `toml:"horizontal_offset"`
	VerticalAlign    string `toml:"vertical_align"`
	VerticalOffset   int    `toml:"vertical_offset"`
}

// Overlays groups the overlay styles by kind.
type Overlays struct {
	Movie  OverlayStyle `toml:"movie"`
	Show   OverlayStyle `toml:"show"`
	Status OverlayStyle `toml:"status"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for libwatch.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and Kometa output directories
//   - Plex: media server connection and tracked libraries
//   - Trakt: show status API credentials
//   - Discord: webhook notification settings
//   - Sizes: library size tracking service
//   - Status: show airing status tracking service
//   - Overlays: Kometa overlay text styles
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Plex     Plex     `toml:"plex"`
	Trakt    Trakt    `toml:"trakt"`
	Discord  Discord  `toml:"discord"`
	Sizes    Sizes    `toml:"sizes"`
	Status   Status   `toml:"status"`
	Overlays Overlays `toml:"overlays"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/libwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("libwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for operation. The Kometa
// output directories are created on a best-effort basis so a run can proceed
// when the overlay volume is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OverlayDir) != "" {
		_ = os.MkdirAll(c.Paths.OverlayDir, 0o755)
	}
	if strings.TrimSpace(c.Paths.CollectionsDir) != "" {
		_ = os.MkdirAll(c.Paths.CollectionsDir, 0o755)
	}
	return nil
}

// SnapshotPath returns the snapshot file path for the named domain.
func (c *Config) SnapshotPath(domain string) string {
	return filepath.Join(c.Paths.DataDir, domain+"_snapshot.json")
}

// RunLogPath returns the path of the run history database.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.DataDir, "runs.db")
}

// ShowLibraries returns the combined TV and anime library names.
func (c *Config) ShowLibraries() []string {
	out := make([]string, 0, len(c.Plex.TVLibraries)+len(c.Plex.AnimeLibraries))
	out = append(out, c.Plex.TVLibraries...)
	out = append(out, c.Plex.AnimeLibraries...)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
