package forecast

import (
	"time"

	"github.com/lox/weatherpanel/internal/models"
)

const (
	dateKeyLayout = "2006-01-02"
	labelLayout   = "Mon 02 Jan"
)

// Aggregate groups samples by UTC calendar day and reduces each day to one
// bucket. Days keep first-seen order and only the first daysWanted days are
// returned; partial days are kept as they are. The mean temperature is a
// plain average of the day's samples and the description is taken from the
// day's earliest sample.
func Aggregate(samples []models.ForecastSample, daysWanted int) []models.ForecastDayBucket {
	if len(samples) == 0 || daysWanted < 1 {
		return []models.ForecastDayBucket{}
	}

	type day struct {
		first models.ForecastSample
		sum   float64
		count int
	}

	var order []string
	days := make(map[string]*day)
	for _, s := range samples {
		key := DateKey(s.EpochSeconds)
		d, ok := days[key]
		if !ok {
			if len(order) == daysWanted {
				// Later samples can only open more days or extend retained ones.
				continue
			}
			d = &day{first: s}
			days[key] = d
			order = append(order, key)
		}
		d.sum += s.TemperatureC
		d.count++
	}

	buckets := make([]models.ForecastDayBucket, 0, len(order))
	for _, key := range order {
		d := days[key]
		mean := d.sum / float64(d.count)
		buckets = append(buckets, models.ForecastDayBucket{
			DateKey:          key,
			Label:            Label(d.first.EpochSeconds),
			MeanTemperatureC: mean,
			Description:      d.first.Description,
			Condition:        string(Classify(d.first.Description, mean)),
		})
	}
	return buckets
}

// DateKey returns the UTC calendar date of an epoch timestamp as YYYY-MM-DD.
func DateKey(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(dateKeyLayout)
}

// Label returns a short day label such as "Thu 01 Jan".
func Label(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(labelLayout)
}
