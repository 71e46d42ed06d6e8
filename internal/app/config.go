package app

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is sourced from the environment. Credential pairs are optional:
// a missing pair degrades the matching handler (unauthenticated Instagram,
// unconfigured Spotify) instead of failing startup.
type Config struct {
	OutputDir   string `env:"GRABBIT_OUTPUT_DIR" envDefault:"downloads"`
	HistoryFile string `env:"GRABBIT_HISTORY_FILE" envDefault:"downloads/history.json"`
	CatalogFile string `env:"GRABBIT_DB_FILE" envDefault:"downloads/catalog.db"`

	InstagramUsername string `env:"INSTAGRAM_USERNAME"`
	InstagramPassword string `env:"INSTAGRAM_PASSWORD"`
	SpotifyClientID   string `env:"SPOTIFY_CLIENT_ID"`
	SpotifySecret     string `env:"SPOTIFY_CLIENT_SECRET"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
