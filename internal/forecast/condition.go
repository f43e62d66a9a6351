package forecast

import "strings"

// Condition is a coarse weather category a UI can map to an icon.
type Condition string

const (
	ConditionClearWarm    Condition = "clear_warm"
	ConditionClearCool    Condition = "clear_cool"
	ConditionPartlyCloudy Condition = "partly_cloudy"
	ConditionMostlyCloudy Condition = "mostly_cloudy"
	ConditionLightRain    Condition = "light_rain"
	ConditionHeavyRain    Condition = "heavy_rain"
	ConditionSnow         Condition = "snow"
	ConditionStorm        Condition = "storm"
	ConditionFog          Condition = "fog"
	ConditionHot          Condition = "hot"
	ConditionFrost        Condition = "frost"
)

// Classify determines the condition category from a provider description
// and the day's mean temperature. Descriptions may be English or Russian.
func Classify(description string, meanTempC float64) Condition {
	lower := strings.ToLower(description)

	// Temperature extremes take priority
	if meanTempC >= 30 {
		return ConditionHot
	}

	if containsAny(lower, "thunder", "storm", "гроза") {
		return ConditionStorm
	}
	if containsAny(lower, "snow", "sleet", "снег") {
		return ConditionSnow
	}
	if containsAny(lower, "heavy rain", "heavy intensity", "сильный дождь", "ливень") {
		return ConditionHeavyRain
	}
	if containsAny(lower, "rain", "shower", "drizzle", "дожд", "морось") {
		return ConditionLightRain
	}
	if containsAny(lower, "fog", "mist", "haze", "туман", "дымка") {
		return ConditionFog
	}

	if meanTempC <= -5 {
		return ConditionFrost
	}

	if containsAny(lower, "overcast", "broken clouds", "пасмурно", "облачно с прояснениями") {
		return ConditionMostlyCloudy
	}
	if containsAny(lower, "cloud", "облач") {
		return ConditionPartlyCloudy
	}

	if meanTempC >= 20 {
		return ConditionClearWarm
	}
	return ConditionClearCool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
