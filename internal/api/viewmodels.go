package api

import (
	"fmt"
	"time"

	"github.com/lox/weatherpanel/internal/models"
	"github.com/lox/weatherpanel/internal/panel"
	"github.com/lox/weatherpanel/internal/store"
)

// FetchRunView is a fetch run with nullable columns flattened for JSON.
type FetchRunView struct {
	StartedAt    time.Time `json:"startedAt"`
	Endpoint     string    `json:"endpoint"`
	DurationMS   int64     `json:"durationMs"`
	HTTPStatus   int       `json:"httpStatus,omitempty"`
	ResponseSize int64     `json:"responseSizeBytes"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

type FetchesResponse struct {
	Last24h store.FetchStats `json:"last24h"`
	Runs    []FetchRunView   `json:"runs"`
}

func newFetchRunViews(runs []store.FetchRunRecord) []FetchRunView {
	out := make([]FetchRunView, 0, len(runs))
	for _, r := range runs {
		out = append(out, FetchRunView{
			StartedAt:    r.StartedAt,
			Endpoint:     r.Endpoint,
			DurationMS:   r.DurationMS,
			HTTPStatus:   int(r.HTTPStatus.Int64),
			ResponseSize: r.ResponseSizeBytes,
			Success:      r.Success,
			Error:        r.ErrorMessage.String,
		})
	}
	return out
}

// PanelView is a panel snapshot prepared for the HTML page.
type PanelView struct {
	Name        string
	Title       string
	Primary     bool
	State       panel.State
	Suggestions []string
}

// Temperature formats a temperature rounded to whole degrees.
func (v PanelView) Temperature(c float64) string {
	return fmt.Sprintf("%+.0f°C", c)
}

// Visibility formats visibility in km, or a dash when unknown.
func (v PanelView) Visibility(c *models.CurrentConditions) string {
	if c == nil || c.VisibilityKm == nil {
		return "— км"
	}
	return fmt.Sprintf("%.1f км", *c.VisibilityKm)
}

// UpdatedAt formats the observation time.
func (v PanelView) UpdatedAt(c *models.CurrentConditions) string {
	if c == nil || c.ObservedAtSec == 0 {
		return ""
	}
	return c.ObservedAt().Format("15:04 UTC")
}

type IndexData struct {
	Panels []PanelView
	Recent []string
}

var panelTitles = map[string]string{
	"main":   "Погода",
	"extra1": "Город 1",
	"extra2": "Город 2",
}
