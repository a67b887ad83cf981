package config

const (
	defaultDataDir        = "~/.local/share/libwatch"
	defaultLogDir         = "~/.local/share/libwatch/logs"
	defaultOverlayDir     = "/kometa/config/overlays"
	defaultCollectionsDir = "/kometa/config/collections"
	defaultTraktBaseURL   = "https://api.trakt.tv"
	defaultTimezone       = "UTC"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultSizesSchedule  = "0 6 * * *"
	defaultStatusSchedule = "30 6 * * *"
	defaultEpsilonGB      = 0.01
	defaultWebhookName    = "libwatch"
	defaultRequestTimeout = 15
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			OverlayDir:     defaultOverlayDir,
			CollectionsDir: defaultCollectionsDir,
		},
		Plex: Plex{
			RequestTimeout: 30,
		},
		Trakt: Trakt{
			BaseURL:        defaultTraktBaseURL,
			RequestTimeout: defaultRequestTimeout,
			Timezone:       defaultTimezone,
		},
		Discord: Discord{
			Username:       defaultWebhookName,
			RequestTimeout: 10,
		},
		Sizes: Sizes{
			Enabled:          true,
			Schedule:         defaultSizesSchedule,
			Epsilon:          defaultEpsilonGB,
			ShowEpisodeCount: true,
		},
		Status: Status{
			Enabled:  true,
			Schedule: defaultStatusSchedule,
			Colors:   defaultStatusColors(),
		},
		Overlays: Overlays{
			Movie: OverlayStyle{
				FontSize:        63,
				FontColor:       "#FFFFFF",
				BackColor:       "#00000099",
				BackWidth:       1920,
				BackHeight:      80,
				HorizontalAlign: "center",
				VerticalAlign:   "top",
			},
			Show: OverlayStyle{
				FontSize:        55,
				FontColor:       "#FFFFFF",
				BackColor:       "#00000099",
				BackWidth:       1920,
				BackHeight:      80,
				HorizontalAlign: "center",
				VerticalAlign:   "bottom",
			},
			Status: OverlayStyle{
				FontSize:        70,
				FontColor:       "#FFFFFF",
				BackColor:       "#000000",
				BackWidth:       1000,
				BackHeight:      90,
				HorizontalAlign: "center",
				VerticalAlign:   "top",
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultStatusColors() map[string]string {
	return map[string]string{
		"AIRING":            "#008000",
		"SEASON_PREMIERE":   "#1E90FF",
		"SEASON_FINALE":     "#FF8C00",
		"MID_SEASON_FINALE": "#FFA500",
		"FINAL_EPISODE":     "#8B0000",
		"RETURNING":         "#9370DB",
		"ENDED":             "#B22222",
		"CANCELLED":         "#FF0000",
	}
}
