// Package suggest turns partial input into a short list of candidate city
// names, merging a static gazetteer with an upstream city search.
package suggest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lox/weatherpanel/internal/metrics"
	"github.com/lox/weatherpanel/internal/openweather"
	"github.com/patrickmn/go-cache"
)

// upstreamThreshold is the number of gazetteer matches below which the
// upstream city search is consulted.
const upstreamThreshold = 3

// CitySearcher is the upstream city search used to widen gazetteer matches.
type CitySearcher interface {
	SearchCities(ctx context.Context, query string, limit int) ([]openweather.City, error)
}

type Options struct {
	Gazetteer      []string
	MinQueryLength int
	Limit          int
	SearchLimit    int
	CacheTTL       time.Duration
	Logger         *slog.Logger
}

// Resolver produces suggestion lists. It never returns an error: upstream
// failures degrade to gazetteer-only results.
type Resolver struct {
	searcher    CitySearcher
	gazetteer   []string
	minLen      int
	limit       int
	searchLimit int
	cache       *cache.Cache
	logger      *slog.Logger
}

func NewResolver(searcher CitySearcher, opts Options) *Resolver {
	if opts.Gazetteer == nil {
		opts.Gazetteer = DefaultGazetteer
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = opts.Limit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var c *cache.Cache
	if opts.CacheTTL > 0 {
		c = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	return &Resolver{
		searcher:    searcher,
		gazetteer:   opts.Gazetteer,
		minLen:      opts.MinQueryLength,
		limit:       opts.Limit,
		searchLimit: opts.SearchLimit,
		cache:       c,
		logger:      opts.Logger,
	}
}

// Normalize trims and lower-cases a query for comparison.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Resolve returns at most Limit suggestions for query. Gazetteer matches
// come first in gazetteer order, followed by upstream results in provider
// order.
func (r *Resolver) Resolve(ctx context.Context, query string) []string {
	trimmed := strings.TrimSpace(query)
	norm := Normalize(query)
	if len([]rune(norm)) < r.minLen || norm == "" {
		metrics.SuggestionsTotal.WithLabelValues("short").Inc()
		return []string{}
	}

	out := make([]string, 0, r.limit)
	for _, city := range r.gazetteer {
		if strings.Contains(strings.ToLower(city), norm) {
			out = append(out, city)
		}
	}

	source := "gazetteer"
	if len(out) < upstreamThreshold && r.searcher != nil {
		names, src := r.upstream(ctx, trimmed, norm)
		source = src
		for _, name := range names {
			if !containsFold(out, name) {
				out = append(out, name)
			}
		}
	}
	metrics.SuggestionsTotal.WithLabelValues(source).Inc()

	if len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

// upstream returns formatted upstream suggestions and the label describing
// where they came from.
func (r *Resolver) upstream(ctx context.Context, query, norm string) ([]string, string) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(norm); ok {
			return cached.([]string), "cache"
		}
	}

	cities, err := r.searcher.SearchCities(ctx, query, r.searchLimit)
	if err != nil {
		r.logger.Debug("suggest: upstream search failed", "query", query, "error", err)
		return nil, "upstream_error"
	}

	names := make([]string, 0, len(cities))
	for _, c := range cities {
		if c.Name == "" {
			continue
		}
		if c.Country == "" {
			names = append(names, c.Name)
			continue
		}
		names = append(names, c.Name+", "+c.Country)
	}

	if r.cache != nil {
		r.cache.SetDefault(norm, names)
	}
	return names, "upstream"
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
