package panel

import (
	"github.com/lox/weatherpanel/internal/models"
)

// Status is a panel's position in its lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ErrorKind classifies a failed search.
type ErrorKind string

const (
	ErrEmptyQuery             ErrorKind = "EmptyQuery"
	ErrNotFound               ErrorKind = "NotFound"
	ErrUpstream               ErrorKind = "UpstreamError"
	ErrGeolocationUnavailable ErrorKind = "GeolocationUnavailable"
)

var messages = map[ErrorKind]string{
	ErrEmptyQuery:             "Введите название города",
	ErrNotFound:               "Город не найден",
	ErrUpstream:               "Не удалось загрузить данные. Попробуйте позже.",
	ErrGeolocationUnavailable: "Не удалось определить местоположение",
}

// Message returns the user-facing text for kind.
func Message(kind ErrorKind) string {
	return messages[kind]
}

// State is the snapshot handed to the render callback after every
// transition. Current and Forecast are populated only when Ready. ByCoords
// marks a Ready panel whose identity came from a coordinate search.
type State struct {
	Panel     string                     `json:"panel"`
	Status    Status                     `json:"status"`
	QueryText string                     `json:"queryText"`
	Identity  *models.LocationIdentity   `json:"identity,omitempty"`
	Current   *models.CurrentConditions  `json:"current,omitempty"`
	Forecast  []models.ForecastDayBucket `json:"forecast"`
	IsLoading bool                       `json:"isLoading"`
	ErrorKind ErrorKind                  `json:"errorKind,omitempty"`
	Message   string                     `json:"message,omitempty"`
	ByCoords  bool                       `json:"byCoords,omitempty"`
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	out.Forecast = make([]models.ForecastDayBucket, len(s.Forecast))
	copy(out.Forecast, s.Forecast)
	return out
}
