package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrGeolocationUnavailable is returned by a Locator that cannot produce a
// position.
var ErrGeolocationUnavailable = errors.New("geolocation unavailable")

// Locator provides the device position.
type Locator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

// StaticLocator reports a fixed position, or ErrGeolocationUnavailable when
// none was configured.
type StaticLocator struct {
	Lat, Lon float64
	Known    bool
}

func (s StaticLocator) Locate(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if !s.Known {
		return 0, 0, ErrGeolocationUnavailable
	}
	return s.Lat, s.Lon, nil
}

// ParseLocation parses "lat,lon". An empty string yields an unknown
// position.
func ParseLocation(s string) (StaticLocator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StaticLocator{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return StaticLocator{}, fmt.Errorf("location %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return StaticLocator{}, fmt.Errorf("location %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return StaticLocator{}, fmt.Errorf("location %q: longitude: %w", s, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return StaticLocator{}, fmt.Errorf("location %q: out of range", s)
	}
	return StaticLocator{Lat: lat, Lon: lon, Known: true}, nil
}
