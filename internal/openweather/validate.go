package openweather

import (
	"github.com/lox/weatherpanel/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagVisibilityNegative = "visibility_negative"
)

// ValidateConditions returns quality flags for values outside physically
// plausible ranges. Metric units are assumed. Flagged data is still used.
func ValidateConditions(c models.CurrentConditions) []string {
	var flags []string

	if c.TemperatureC < -90 || c.TemperatureC > 60 {
		flags = append(flags, FlagTempOutOfRange)
	}
	if c.HumidityPct < 0 || c.HumidityPct > 100 {
		flags = append(flags, FlagHumidityInvalid)
	}
	if c.WindSpeedMs < 0 || c.WindSpeedMs > 120 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}
	// Zero means the provider omitted pressure.
	if c.PressureHpa != 0 && (c.PressureHpa < 850 || c.PressureHpa > 1090) {
		flags = append(flags, FlagPressureOutOfRange)
	}
	if c.VisibilityKm != nil && *c.VisibilityKm < 0 {
		flags = append(flags, FlagVisibilityNegative)
	}

	return flags
}
