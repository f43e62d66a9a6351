// Package query resolves a finalized search, by name or by coordinates,
// into a location identity with its current conditions and raw forecast.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lox/weatherpanel/internal/models"
	"github.com/lox/weatherpanel/internal/openweather"
)

var (
	// ErrNotFound means the provider affirmatively reported no match.
	ErrNotFound = errors.New("not found")
	// ErrUpstream covers transport failures, non-success statuses and
	// malformed payloads.
	ErrUpstream = errors.New("upstream error")
)

// Upstream is the subset of the weather provider the resolver consumes.
type Upstream interface {
	GeocodeByName(ctx context.Context, query string) (*openweather.Weather, error)
	ReverseGeocode(ctx context.Context, lat, lon float64, limit int) (string, error)
	CurrentByCoords(ctx context.Context, lat, lon float64) (*openweather.Weather, error)
	ForecastByCoords(ctx context.Context, lat, lon float64) ([]models.ForecastSample, error)
}

// Result is one completed resolution.
type Result struct {
	Identity    models.LocationIdentity
	Current     models.CurrentConditions
	ForecastRaw []models.ForecastSample
}

type Resolver struct {
	upstream     Upstream
	fallbackName string
	logger       *slog.Logger
}

// NewResolver creates a resolver. fallbackName labels coordinates the
// provider cannot name.
func NewResolver(upstream Upstream, fallbackName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{upstream: upstream, fallbackName: fallbackName, logger: logger}
}

// ByName resolves free text. The geocoding round trip also supplies the
// current conditions; the forecast is then fetched by coordinates.
func (r *Resolver) ByName(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)

	w, err := r.upstream.GeocodeByName(ctx, text)
	if err != nil {
		return nil, classify(fmt.Sprintf("geocode %q", text), err)
	}

	samples, err := r.upstream.ForecastByCoords(ctx, w.Identity.Latitude, w.Identity.Longitude)
	if err != nil {
		return nil, upstream(fmt.Sprintf("forecast for %q", text), err)
	}

	return &Result{Identity: w.Identity, Current: w.Current, ForecastRaw: samples}, nil
}

// ByCoords resolves a coordinate pair, naming it by reverse geocoding. The
// fallback name is used only when the provider has no name for the place;
// a failed reverse lookup fails the whole search.
func (r *Resolver) ByCoords(ctx context.Context, lat, lon float64) (*Result, error) {
	name, err := r.upstream.ReverseGeocode(ctx, lat, lon, 1)
	if err != nil {
		return nil, upstream("reverse geocode", err)
	}
	if name == "" {
		r.logger.Debug("query: no name for location, using fallback", "lat", lat, "lon", lon)
		name = r.fallbackName
	}

	w, err := r.upstream.CurrentByCoords(ctx, lat, lon)
	if err != nil {
		return nil, upstream("current conditions", err)
	}
	if w.Identity.CountryCode == "" || name == "" {
		return nil, fmt.Errorf("%w: incomplete location for %.4f,%.4f", ErrUpstream, lat, lon)
	}

	samples, err := r.upstream.ForecastByCoords(ctx, lat, lon)
	if err != nil {
		return nil, upstream("forecast", err)
	}

	return &Result{
		Identity: models.LocationIdentity{
			Latitude:    lat,
			Longitude:   lon,
			DisplayName: name,
			CountryCode: w.Identity.CountryCode,
		},
		Current:     w.Current,
		ForecastRaw: samples,
	}, nil
}

func classify(op string, err error) error {
	if errors.Is(err, openweather.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	}
	return upstream(op, err)
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUpstream, err))
}
