package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/lox/weatherpanel/internal/panel"
)

// Pruner deletes audit rows older than a cutoff.
type Pruner interface {
	PruneFetchRuns(before time.Time) (int64, error)
}

// Refresher periodically force-refreshes every Ready panel and prunes the
// fetch audit.
type Refresher struct {
	app           *App
	pruner        Pruner
	interval      time.Duration
	pruneInterval time.Duration
	retention     time.Duration
	logger        *slog.Logger
}

func NewRefresher(a *App, pruner Pruner, interval, retention time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		app:           a,
		pruner:        pruner,
		interval:      interval,
		pruneInterval: time.Hour,
		retention:     retention,
		logger:        logger,
	}
}

// Run blocks until ctx is done. A zero refresh interval disables panel
// refreshes; a zero retention disables pruning.
func (r *Refresher) Run(ctx context.Context) {
	r.prune()

	var refreshC <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		refreshC = t.C
	}
	pruneTicker := time.NewTicker(r.pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher: shutting down")
			return
		case <-refreshC:
			r.app.RefreshAll(ctx)
		case <-pruneTicker.C:
			r.prune()
		}
	}
}

func (r *Refresher) prune() {
	if r.pruner == nil || r.retention <= 0 {
		return
	}
	n, err := r.pruner.PruneFetchRuns(time.Now().Add(-r.retention))
	if err != nil {
		r.logger.Warn("refresher: pruning fetch runs failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("refresher: pruned fetch runs", "deleted", n)
	}
}

// RefreshAll reruns the query of every Ready panel as a forced search and
// returns how many panels were refreshed. Panels resolved by coordinates
// are refreshed by their coordinates.
func (a *App) RefreshAll(ctx context.Context) int {
	n := 0
	for _, name := range panelOrder {
		p := a.panels[name]
		st := p.State()
		if st.Status != panel.StatusReady || st.QueryText == "" {
			continue
		}
		if st.ByCoords && st.Identity != nil {
			a.logger.Debug("app: refreshing panel by coordinates", "panel", name,
				"lat", st.Identity.Latitude, "lon", st.Identity.Longitude)
			p.SearchCoords(ctx, st.Identity.Latitude, st.Identity.Longitude)
			n++
			continue
		}
		a.logger.Debug("app: refreshing panel", "panel", name, "query", st.QueryText)
		p.Search(ctx, st.QueryText, true)
		n++
	}
	return n
}
