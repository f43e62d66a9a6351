package openweather

import (
	"context"
	"fmt"

	"github.com/lox/weatherpanel/internal/models"
)

// currentResponse is the /data/2.5/weather payload.
type currentResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility *int `json:"visibility"` // meters
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Name string `json:"name"`
}

// Weather is a location identity together with its current conditions, as
// returned by one /weather call.
type Weather struct {
	Identity models.LocationIdentity
	Current  models.CurrentConditions
}

// GeocodeByName resolves free text to coordinates, name and country, and
// returns the current conditions from the same round trip.
func (c *Client) GeocodeByName(ctx context.Context, query string) (*Weather, error) {
	var data currentResponse
	err := c.get(ctx, EndpointWeather, map[string]string{
		"q":     query,
		"lang":  c.lang,
		"units": c.units,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Name == "" || data.Sys.Country == "" {
		return nil, fmt.Errorf("geocode %q: incomplete location in response", query)
	}

	cur := c.checked(query, data.conditions())
	return &Weather{
		Identity: models.LocationIdentity{
			Latitude:    data.Coord.Lat,
			Longitude:   data.Coord.Lon,
			DisplayName: data.Name,
			CountryCode: data.Sys.Country,
		},
		Current: cur,
	}, nil
}

// CurrentByCoords fetches current conditions for a coordinate pair. The
// returned identity carries the provider's own name for the spot.
func (c *Client) CurrentByCoords(ctx context.Context, lat, lon float64) (*Weather, error) {
	var data currentResponse
	err := c.get(ctx, EndpointWeather, map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"lang":  c.lang,
		"units": c.units,
	}, &data)
	if err != nil {
		return nil, err
	}

	cur := c.checked(formatCoord(lat)+","+formatCoord(lon), data.conditions())
	return &Weather{
		Identity: models.LocationIdentity{
			Latitude:    lat,
			Longitude:   lon,
			DisplayName: data.Name,
			CountryCode: data.Sys.Country,
		},
		Current: cur,
	}, nil
}

// checked logs implausible values. Ranges are metric, so other unit
// systems are not checked.
func (c *Client) checked(location string, cur models.CurrentConditions) models.CurrentConditions {
	if c.units != "metric" {
		return cur
	}
	if flags := ValidateConditions(cur); len(flags) > 0 {
		c.logger.Warn("openweather: implausible current conditions", "location", location, "flags", flags)
	}
	return cur
}

func (r *currentResponse) conditions() models.CurrentConditions {
	cur := models.CurrentConditions{
		TemperatureC:  r.Main.Temp,
		FeelsLikeC:    r.Main.FeelsLike,
		HumidityPct:   r.Main.Humidity,
		WindSpeedMs:   r.Wind.Speed,
		PressureHpa:   r.Main.Pressure,
		ObservedAtSec: r.Dt,
	}
	if len(r.Weather) > 0 {
		cur.Description = r.Weather[0].Description
	}
	if r.Visibility != nil {
		km := float64(*r.Visibility) / 1000
		cur.VisibilityKm = &km
	}
	return cur
}

// forecastResponse is the /data/2.5/forecast payload (3-hour steps).
type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// ForecastByCoords returns forecast samples in provider order (ascending time).
func (c *Client) ForecastByCoords(ctx context.Context, lat, lon float64) ([]models.ForecastSample, error) {
	var data forecastResponse
	err := c.get(ctx, EndpointForecast, map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"lang":  c.lang,
		"units": c.units,
	}, &data)
	if err != nil {
		return nil, err
	}

	samples := make([]models.ForecastSample, 0, len(data.List))
	for _, item := range data.List {
		s := models.ForecastSample{
			EpochSeconds: item.Dt,
			TemperatureC: item.Main.Temp,
		}
		if len(item.Weather) > 0 {
			s.Description = item.Weather[0].Description
		}
		samples = append(samples, s)
	}
	return samples, nil
}
