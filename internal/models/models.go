package models

import "time"

// LocationIdentity anchors every fetch for one search. It is built in one
// piece by the query resolver and never mutated afterwards.
type LocationIdentity struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
	CountryCode string  `json:"countryCode"`
}

// Label returns "Name, CC", or just the name when the country is unknown.
func (l LocationIdentity) Label() string {
	if l.CountryCode == "" {
		return l.DisplayName
	}
	return l.DisplayName + ", " + l.CountryCode
}

type CurrentConditions struct {
	TemperatureC  float64  `json:"temperatureC"`
	FeelsLikeC    float64  `json:"feelsLikeC"`
	Description   string   `json:"description"`
	HumidityPct   int      `json:"humidityPct"`
	WindSpeedMs   float64  `json:"windSpeedMs"`
	PressureHpa   int      `json:"pressureHpa"`
	VisibilityKm  *float64 `json:"visibilityKm"` // nil when the provider omits visibility
	ObservedAtSec int64    `json:"observedAtEpochSeconds"`
}

// ObservedAt returns the observation time in UTC.
func (c CurrentConditions) ObservedAt() time.Time {
	return time.Unix(c.ObservedAtSec, 0).UTC()
}

// ForecastSample is one raw upstream data point, typically 3 hours apart.
type ForecastSample struct {
	EpochSeconds int64   `json:"epochSeconds"`
	TemperatureC float64 `json:"temperatureC"`
	Description  string  `json:"description"`
}

type ForecastDayBucket struct {
	DateKey          string  `json:"dateKey"` // ISO date, UTC
	Label            string  `json:"label"`
	MeanTemperatureC float64 `json:"meanTemperatureC"`
	Description      string  `json:"description"`
	Condition        string  `json:"condition"`
}
