package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvProduction = "production"

// Config stores all configuration for the application.
type Config struct {
	ScrapeHost       string  `mapstructure:"SCRAPE_HOST"`
	ServerPort       string  `mapstructure:"SERVER_PORT"`
	AppEnv           string  `mapstructure:"APP_ENV"`
	LogLevel         string  `mapstructure:"LOG_LEVEL"`
	HistoryPath      string  `mapstructure:"HISTORY_PATH"`
	PostgresURL      string  `mapstructure:"POSTGRES_URL"`
	RedisAddr        string  `mapstructure:"REDIS_ADDR"`
	EmbedEndpoint    string  `mapstructure:"EMBED_ENDPOINT"`
	EmbedAPIKey      string  `mapstructure:"EMBED_API_KEY"`
	EmbedModel       string  `mapstructure:"EMBED_MODEL"`
	EmbedBatch       int     `mapstructure:"EMBED_BATCH"`
	EmbedRate        float64 `mapstructure:"EMBED_RATE"`
	EmbedMarkerDays  int     `mapstructure:"EMBED_MARKER_DAYS"`
	SyncTimeout      int     `mapstructure:"SYNC_TIMEOUT"`
	ProbeURL         string  `mapstructure:"PROBE_URL"`
	ProbeInterval    int     `mapstructure:"PROBE_INTERVAL"`
	BackfillInterval int     `mapstructure:"BACKFILL_INTERVAL"`

	fromFile bool
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// A missing .env is fine, production is configured through the environment.
	readErr := viper.ReadInConfig()

	viper.SetDefault("SCRAPE_HOST", "http://localhost:8000")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HISTORY_PATH", "data/history.db")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("EMBED_ENDPOINT", "https://api.openai.com/v1/embeddings")
	viper.SetDefault("EMBED_API_KEY", "")
	viper.SetDefault("EMBED_MODEL", "text-embedding-3-small")
	viper.SetDefault("EMBED_BATCH", 50)
	viper.SetDefault("EMBED_RATE", 2.0)
	viper.SetDefault("EMBED_MARKER_DAYS", 7)
	viper.SetDefault("PROBE_URL", "")

	// Durations below are in seconds.
	viper.SetDefault("SYNC_TIMEOUT", 120)
	viper.SetDefault("PROBE_INTERVAL", 15)
	viper.SetDefault("BACKFILL_INTERVAL", 3600)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.fromFile = readErr == nil
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.ScrapeHost
	}
	return &cfg, nil
}

// validate rejects values that would crash the ticker-driven workers.
func (c *Config) validate() error {
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("PROBE_INTERVAL must be positive, got %d", c.ProbeInterval)
	}
	if c.BackfillInterval <= 0 {
		return fmt.Errorf("BACKFILL_INTERVAL must be positive, got %d", c.BackfillInterval)
	}
	return nil
}

// IsProduction reports whether the process runs as a production build.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// WatchHost re-seeds h whenever SCRAPE_HOST changes in the .env file.
// Nothing is watched when the configuration came purely from the environment.
func (c *Config) WatchHost(h *Host, logger *zap.Logger) {
	if !c.fromFile {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		next := viper.GetString("SCRAPE_HOST")
		if next == "" || next == h.Get() {
			return
		}
		h.Set(next)
		logger.Info("scrape host reloaded", zap.String("host", next), zap.String("file", e.Name))
	})
	viper.WatchConfig()
}
