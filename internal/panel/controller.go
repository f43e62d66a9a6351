// Package panel implements the lifecycle of one display panel: loading,
// deduplication of repeated queries, stale-response discarding and
// persistence of the last successful query.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lox/weatherpanel/internal/forecast"
	"github.com/lox/weatherpanel/internal/metrics"
	"github.com/lox/weatherpanel/internal/query"
)

// Resolver turns a finalized search into location data.
type Resolver interface {
	ByName(ctx context.Context, text string) (*query.Result, error)
	ByCoords(ctx context.Context, lat, lon float64) (*query.Result, error)
}

// Storage persists the panel's last successful query text.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Ledger receives the display label of every successful primary search.
type Ledger interface {
	Record(name string) error
}

type Options struct {
	Name         string
	StorageKey   string
	Primary      bool
	ForecastDays int
	// Ledger is only consulted for primary panels.
	Ledger Ledger
	// Render is called with a snapshot after every transition, while the
	// controller's lock is held. It must not call back into the controller.
	Render func(State)
	Logger *slog.Logger
}

// Controller owns one panel. Searches may be issued from any goroutine; a
// completion is applied only if no newer search was started on the same
// panel in the meantime.
type Controller struct {
	resolver Resolver
	storage  Storage
	opts     Options
	logger   *slog.Logger

	mu             sync.Mutex
	seq            uint64
	lastNormalized string
	state          State
}

func New(resolver Resolver, storage Storage, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ForecastDays < 1 {
		opts.ForecastDays = 1
	}
	return &Controller{
		resolver: resolver,
		storage:  storage,
		opts:     opts,
		logger:   opts.Logger.With("panel", opts.Name),
		state:    State{Panel: opts.Name, Status: StatusIdle},
	}
}

func (c *Controller) Name() string { return c.opts.Name }

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Search resolves free text. On the primary panel a search whose
// normalized text equals the last loading or successful query is ignored
// unless force is set. The raw text, untrimmed, is what gets persisted.
func (c *Controller) Search(ctx context.Context, raw string, force bool) State {
	text := strings.TrimSpace(raw)
	norm := strings.ToLower(text)

	c.mu.Lock()
	if text == "" {
		c.seq++
		c.lastNormalized = ""
		if c.opts.Primary {
			c.failLocked(text, ErrEmptyQuery)
		} else {
			c.state = State{Panel: c.opts.Name, Status: StatusIdle}
			c.renderLocked()
		}
		snapshot := c.state.clone()
		c.mu.Unlock()
		return snapshot
	}

	if c.opts.Primary && !force && norm == c.lastNormalized {
		snapshot := c.state.clone()
		c.mu.Unlock()
		metrics.PanelSearchesTotal.WithLabelValues(c.opts.Name, "deduplicated").Inc()
		c.logger.Debug("panel: duplicate search ignored", "query", text)
		return snapshot
	}

	if c.opts.Primary {
		c.lastNormalized = norm
	}
	seq := c.beginLocked(text)
	c.mu.Unlock()

	res, err := c.resolver.ByName(ctx, text)
	return c.complete(seq, request{text: text, raw: raw}, res, err)
}

// SearchCoords resolves a coordinate pair. On success the resolved display
// name becomes the panel's query text and the panel is marked as resolved
// by coordinates, so refreshes reuse the coordinates rather than the name.
// Coordinate searches are never deduplicated.
func (c *Controller) SearchCoords(ctx context.Context, lat, lon float64) State {
	label := fmt.Sprintf("%.4f, %.4f", lat, lon)

	c.mu.Lock()
	if c.opts.Primary {
		c.lastNormalized = ""
	}
	seq := c.beginLocked(label)
	c.mu.Unlock()

	res, err := c.resolver.ByCoords(ctx, lat, lon)
	if res != nil {
		label = res.Identity.DisplayName
	}
	return c.complete(seq, request{text: label, raw: label, byCoords: true}, res, err)
}

// Restore reruns the persisted query as a forced search. It reports false
// without touching the panel when nothing was persisted.
func (c *Controller) Restore(ctx context.Context) (State, bool) {
	if c.storage == nil || c.opts.StorageKey == "" {
		return c.State(), false
	}
	text, ok, err := c.storage.Get(c.opts.StorageKey)
	if err != nil {
		c.logger.Warn("panel: reading persisted query failed", "key", c.opts.StorageKey, "error", err)
		return c.State(), false
	}
	if !ok || strings.TrimSpace(text) == "" {
		return c.State(), false
	}
	c.logger.Info("panel: restoring persisted query", "query", text)
	return c.Search(ctx, text, true), true
}

type request struct {
	text     string
	raw      string
	byCoords bool
}

func (c *Controller) beginLocked(text string) uint64 {
	c.seq++
	c.state.Status = StatusLoading
	c.state.QueryText = text
	c.state.IsLoading = true
	c.state.ErrorKind = ""
	c.state.Message = ""
	c.renderLocked()
	return c.seq
}

func (c *Controller) complete(seq uint64, req request, res *query.Result, err error) State {
	text := req.text

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		metrics.PanelSearchesTotal.WithLabelValues(c.opts.Name, "stale").Inc()
		metrics.StaleResponsesDiscarded.WithLabelValues("panel").Inc()
		c.logger.Debug("panel: discarding stale response", "query", text, "seq", seq, "latest", c.seq)
		return c.state.clone()
	}

	if err != nil {
		kind := ErrUpstream
		if errors.Is(err, query.ErrNotFound) {
			kind = ErrNotFound
		}
		if c.opts.Primary {
			c.lastNormalized = ""
		}
		c.logger.Warn("panel: search failed", "query", text, "kind", kind, "error", err)
		metrics.PanelSearchesTotal.WithLabelValues(c.opts.Name, "error").Inc()
		c.failLocked(text, kind)
		return c.state.clone()
	}

	identity := res.Identity
	current := res.Current
	c.state = State{
		Panel:     c.opts.Name,
		Status:    StatusReady,
		QueryText: text,
		Identity:  &identity,
		Current:   &current,
		Forecast:  forecast.Aggregate(res.ForecastRaw, c.opts.ForecastDays),
		ByCoords:  req.byCoords,
	}
	if c.opts.Primary {
		c.lastNormalized = strings.ToLower(text)
	}
	metrics.PanelSearchesTotal.WithLabelValues(c.opts.Name, "ready").Inc()
	c.persistLocked(req.raw, identity.Label())
	c.renderLocked()
	return c.state.clone()
}

// failLocked moves the panel to Error and clears any displayed data.
func (c *Controller) failLocked(text string, kind ErrorKind) {
	c.state = State{
		Panel:     c.opts.Name,
		Status:    StatusError,
		QueryText: text,
		ErrorKind: kind,
		Message:   Message(kind),
	}
	c.renderLocked()
}

func (c *Controller) persistLocked(text, label string) {
	if c.storage != nil && c.opts.StorageKey != "" {
		if err := c.storage.Set(c.opts.StorageKey, text); err != nil {
			c.logger.Warn("panel: persisting query failed", "key", c.opts.StorageKey, "error", err)
		}
	}
	if c.opts.Primary && c.opts.Ledger != nil {
		if err := c.opts.Ledger.Record(label); err != nil {
			c.logger.Warn("panel: recording recent city failed", "city", label, "error", err)
		}
	}
}

func (c *Controller) renderLocked() {
	if c.opts.Render != nil {
		c.opts.Render(c.state.clone())
	}
}
