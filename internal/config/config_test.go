package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "https://api.openweathermap.org" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Units != "metric" {
		t.Errorf("API.Units = %q, want metric", cfg.API.Units)
	}
	if cfg.App.ForecastDays != 5 {
		t.Errorf("App.ForecastDays = %d, want 5", cfg.App.ForecastDays)
	}
	if cfg.App.MiniForecastDays != 2 {
		t.Errorf("App.MiniForecastDays = %d, want 2", cfg.App.MiniForecastDays)
	}
	if cfg.App.Debounce != 350*time.Millisecond {
		t.Errorf("App.Debounce = %v, want 350ms", cfg.App.Debounce)
	}
	if cfg.App.GeolocationTimeout != 15*time.Second {
		t.Errorf("App.GeolocationTimeout = %v, want 15s", cfg.App.GeolocationTimeout)
	}
	if cfg.App.RefreshInterval != 10*time.Minute {
		t.Errorf("App.RefreshInterval = %v, want 10m", cfg.App.RefreshInterval)
	}
	if cfg.App.Location != "" {
		t.Errorf("App.Location = %q, want empty", cfg.App.Location)
	}
	if cfg.Store.Retention != 7*24*time.Hour {
		t.Errorf("Store.Retention = %v, want 168h", cfg.Store.Retention)
	}
	if cfg.GetServerAddr() != ":8080" {
		t.Errorf("GetServerAddr() = %q, want :8080", cfg.GetServerAddr())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WEATHERPANEL_API_KEY", "secret")
	t.Setenv("WEATHERPANEL_APP_SUGGESTIONSLIMIT", "7")
	t.Setenv("WEATHERPANEL_APP_DEBOUNCE", "100ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Key != "secret" {
		t.Errorf("API.Key = %q, want secret", cfg.API.Key)
	}
	if cfg.App.SuggestionsLimit != 7 {
		t.Errorf("App.SuggestionsLimit = %d, want 7", cfg.App.SuggestionsLimit)
	}
	if cfg.App.Debounce != 100*time.Millisecond {
		t.Errorf("App.Debounce = %v, want 100ms", cfg.App.Debounce)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weatherpanel.yaml")
	data := []byte("api:\n  lang: en\napp:\n  forecastdays: 3\nserver:\n  port: 9090\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Lang != "en" {
		t.Errorf("API.Lang = %q, want en", cfg.API.Lang)
	}
	if cfg.App.ForecastDays != 3 {
		t.Errorf("App.ForecastDays = %d, want 3", cfg.App.ForecastDays)
	}
	if cfg.GetServerAddr() != ":9090" {
		t.Errorf("GetServerAddr() = %q, want :9090", cfg.GetServerAddr())
	}
}

func TestLoad_InvalidForecastDays(t *testing.T) {
	t.Setenv("WEATHERPANEL_APP_FORECASTDAYS", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for forecastdays=0")
	}
}
