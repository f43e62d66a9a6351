package openweather

import (
	"context"
	"strconv"
)

type geoResult struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state"`
}

// City is one geocoding candidate.
type City struct {
	Name    string // localized when the provider has a name in the client language
	Country string
	Lat     float64
	Lon     float64
}

func (c *Client) localName(r geoResult) string {
	if n := r.LocalNames[c.lang]; n != "" {
		return n
	}
	return r.Name
}

// SearchCities returns up to limit candidates in provider ranking order.
func (c *Client) SearchCities(ctx context.Context, query string, limit int) ([]City, error) {
	var data []geoResult
	err := c.get(ctx, EndpointDirect, map[string]string{
		"q":     query,
		"limit": strconv.Itoa(limit),
	}, &data)
	if err != nil {
		return nil, err
	}

	cities := make([]City, 0, len(data))
	for _, r := range data {
		cities = append(cities, City{
			Name:    c.localName(r),
			Country: r.Country,
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}
	return cities, nil
}

// ReverseGeocode returns the best localized name for the coordinates, or ""
// when the provider knows none.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64, limit int) (string, error) {
	var data []geoResult
	err := c.get(ctx, EndpointReverse, map[string]string{
		"lat":   formatCoord(lat),
		"lon":   formatCoord(lon),
		"limit": strconv.Itoa(limit),
	}, &data)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	return c.localName(data[0]), nil
}
