// Package app owns the three display panels, the recent-city ledger and
// the per-input suggestion feeds, and runs startup restoration.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lox/weatherpanel/internal/config"
	"github.com/lox/weatherpanel/internal/ledger"
	"github.com/lox/weatherpanel/internal/panel"
	"github.com/lox/weatherpanel/internal/suggest"
)

const (
	PanelMain   = "main"
	PanelExtra1 = "extra1"
	PanelExtra2 = "extra2"
)

// Storage keys, one owner each.
const (
	KeyMain   = "lastCityInput"
	KeyExtra1 = "extraCity1"
	KeyExtra2 = "extraCity2"
)

var panelOrder = []string{PanelMain, PanelExtra1, PanelExtra2}

// suggestTimeout bounds one debounced suggestion lookup.
const suggestTimeout = 10 * time.Second

// Storage is the persisted key-value service shared by the panels and the
// ledger.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

type Options struct {
	Settings config.AppConfig
	// Render receives every panel snapshot.
	Render func(panel.State)
	// Suggestions receives each list published by a panel's feed.
	Suggestions func(panelName string, list []string)
	Logger      *slog.Logger
}

type App struct {
	panels    map[string]*panel.Controller
	feeds     map[string]*suggest.Feed
	ledger    *ledger.Ledger
	suggester *suggest.Resolver
	locator   Locator
	settings  config.AppConfig
	logger    *slog.Logger
}

func New(resolver panel.Resolver, suggester *suggest.Resolver, storage Storage, locator Locator, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if locator == nil {
		locator = StaticLocator{}
	}

	a := &App{
		panels:    make(map[string]*panel.Controller, len(panelOrder)),
		feeds:     make(map[string]*suggest.Feed, len(panelOrder)),
		ledger:    ledger.New(storage, opts.Settings.RecentLimit, logger),
		suggester: suggester,
		locator:   locator,
		settings:  opts.Settings,
		logger:    logger,
	}
	a.ledger.Load()

	keys := map[string]string{PanelMain: KeyMain, PanelExtra1: KeyExtra1, PanelExtra2: KeyExtra2}
	for _, name := range panelOrder {
		primary := name == PanelMain
		days := opts.Settings.MiniForecastDays
		if primary {
			days = opts.Settings.ForecastDays
		}

		popts := panel.Options{
			Name:         name,
			StorageKey:   keys[name],
			Primary:      primary,
			ForecastDays: days,
			Render:       opts.Render,
			Logger:       logger,
		}
		if primary {
			popts.Ledger = a.ledger
		}
		a.panels[name] = panel.New(resolver, storage, popts)

		var publish func([]string)
		if opts.Suggestions != nil {
			publish = func(list []string) { opts.Suggestions(name, list) }
		}
		a.feeds[name] = suggest.NewFeed(name, suggester, opts.Settings.Debounce, suggestTimeout, logger, publish)
	}

	return a
}

// PanelNames lists the panels in display order.
func PanelNames() []string {
	return append([]string(nil), panelOrder...)
}

func (a *App) Panel(name string) (*panel.Controller, bool) {
	p, ok := a.panels[name]
	return p, ok
}

func (a *App) Feed(name string) (*suggest.Feed, bool) {
	f, ok := a.feeds[name]
	return f, ok
}

// States returns the current snapshot of every panel in display order.
func (a *App) States() []panel.State {
	out := make([]panel.State, 0, len(panelOrder))
	for _, name := range panelOrder {
		out = append(out, a.panels[name].State())
	}
	return out
}

// RecentCities returns the ledger, most recent first.
func (a *App) RecentCities() []string {
	return a.ledger.Cities()
}

// Suggest resolves suggestions once, without debouncing.
func (a *App) Suggest(ctx context.Context, text string) []string {
	return a.suggester.Resolve(ctx, text)
}

// Pick submits a chosen suggestion to a panel: the panel's feed is
// cleared and the panel searches for the picked text. Picks on the primary
// panel are forced refreshes.
func (a *App) Pick(ctx context.Context, name, text string) (panel.State, bool) {
	p, ok := a.panels[name]
	if !ok {
		return panel.State{}, false
	}
	a.feeds[name].Clear()
	return p.Search(ctx, text, name == PanelMain), true
}

// StartupReport summarizes what Start restored.
type StartupReport struct {
	Restored       []string
	Geolocated     bool
	GeolocationErr panel.ErrorKind
}

// Start restores both secondary panels, then tries to locate the device
// for the primary panel. Without a position the
// persisted primary query is rerun as a forced search.
func (a *App) Start(ctx context.Context) StartupReport {
	var report StartupReport

	for _, name := range []string{PanelExtra1, PanelExtra2} {
		if _, ok := a.panels[name].Restore(ctx); ok {
			report.Restored = append(report.Restored, name)
		}
	}

	if a.geolocate(ctx) {
		report.Geolocated = true
		return report
	}
	report.GeolocationErr = panel.ErrGeolocationUnavailable

	if _, ok := a.panels[PanelMain].Restore(ctx); ok {
		report.Restored = append(report.Restored, PanelMain)
	}
	return report
}

// geolocate searches the primary panel by device position and reports
// whether that produced a Ready panel.
func (a *App) geolocate(ctx context.Context) bool {
	timeout := a.settings.GeolocationTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	locCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lat, lon, err := a.locator.Locate(locCtx)
	if err != nil {
		level := slog.LevelInfo
		if !errors.Is(err, ErrGeolocationUnavailable) {
			level = slog.LevelWarn
		}
		a.logger.Log(ctx, level, "app: geolocation unavailable, falling back to persisted query", "error", err)
		return false
	}

	state := a.panels[PanelMain].SearchCoords(ctx, lat, lon)
	if state.Status != panel.StatusReady {
		a.logger.Warn("app: geolocated search failed", "lat", lat, "lon", lon, "kind", state.ErrorKind)
		return false
	}
	return true
}

// Close stops every pending debounced lookup.
func (a *App) Close() {
	for _, f := range a.feeds {
		f.Close()
	}
}
