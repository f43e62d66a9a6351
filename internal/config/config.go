package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Log    LogConfig
	API    APIConfig
	App    AppConfig
	Store  StoreConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// APIConfig describes the upstream weather provider.
type APIConfig struct {
	BaseURL      string
	Key          string
	Units        string
	Lang         string
	GeocodeLimit int
	Timeout      time.Duration
	RateLimit    float64 // requests per second shared by every panel
	Burst        int
	CacheTTL     time.Duration
}

// AppConfig holds the widget behaviour knobs.
type AppConfig struct {
	ForecastDays       int
	MiniForecastDays   int
	SuggestionsLimit   int
	RecentLimit        int
	Debounce           time.Duration
	MinQueryLength     int
	GeolocationTimeout time.Duration
	FallbackName       string
	// RefreshInterval force-refreshes Ready panels; 0 disables.
	RefreshInterval time.Duration
	// Location is the device position as "lat,lon"; empty means the
	// position is unknown and startup falls back to the persisted query.
	Location string
}

type StoreConfig struct {
	Path string
	// Retention is how long fetch audit rows are kept; 0 keeps them forever.
	Retention time.Duration
}

// Load reads configuration from an optional config file, a .env file and
// environment variables prefixed with WEATHERPANEL_. An empty configFile
// searches the default locations.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.weatherpanel")
	}

	setDefaults(v)

	v.SetEnvPrefix("WEATHERPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("api.baseurl", "https://api.openweathermap.org")
	v.SetDefault("api.key", "")
	v.SetDefault("api.units", "metric")
	v.SetDefault("api.lang", "ru")
	v.SetDefault("api.geocodelimit", 5)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.ratelimit", 1.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("api.cachettl", 10*time.Minute)

	v.SetDefault("app.forecastdays", 5)
	v.SetDefault("app.miniforecastdays", 2)
	v.SetDefault("app.suggestionslimit", 5)
	v.SetDefault("app.recentlimit", 5)
	v.SetDefault("app.debounce", 350*time.Millisecond)
	v.SetDefault("app.minquerylength", 2)
	v.SetDefault("app.geolocationtimeout", 15*time.Second)
	v.SetDefault("app.fallbackname", "Текущее местоположение")
	v.SetDefault("app.location", "")
	v.SetDefault("app.refreshinterval", 10*time.Minute)

	v.SetDefault("store.path", "data/weatherpanel.db")
	v.SetDefault("store.retention", 7*24*time.Hour)
}

// Validate rejects settings the pipeline cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.App.ForecastDays < 1:
		return fmt.Errorf("app.forecastdays must be >= 1, got %d", c.App.ForecastDays)
	case c.App.MiniForecastDays < 1:
		return fmt.Errorf("app.miniforecastdays must be >= 1, got %d", c.App.MiniForecastDays)
	case c.App.SuggestionsLimit < 1:
		return fmt.Errorf("app.suggestionslimit must be >= 1, got %d", c.App.SuggestionsLimit)
	case c.App.RecentLimit < 1:
		return fmt.Errorf("app.recentlimit must be >= 1, got %d", c.App.RecentLimit)
	case c.API.RateLimit <= 0:
		return fmt.Errorf("api.ratelimit must be > 0, got %v", c.API.RateLimit)
	}
	return nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates a new slog.Logger based on the configuration
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
