package suggest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lox/weatherpanel/internal/debounce"
	"github.com/lox/weatherpanel/internal/metrics"
)

// Feed debounces keystrokes from one input and publishes the suggestion
// list for the most recently issued lookup. A lookup that completes after
// a newer one was issued is discarded.
type Feed struct {
	name      string
	resolver  *Resolver
	debouncer *debounce.Debouncer[string]
	timeout   time.Duration
	logger    *slog.Logger
	onPublish func([]string)

	mu      sync.Mutex
	issued  uint64
	current []string
}

// NewFeed creates a feed for one input. onPublish may be nil.
func NewFeed(name string, resolver *Resolver, delay, timeout time.Duration, logger *slog.Logger, onPublish func([]string)) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Feed{
		name:      name,
		resolver:  resolver,
		timeout:   timeout,
		logger:    logger,
		onPublish: onPublish,
		current:   []string{},
	}
	f.debouncer = debounce.New(delay, f.lookup)
	return f
}

// Input records a keystroke. The lookup runs once the input has been quiet
// for the debounce delay.
func (f *Feed) Input(text string) {
	f.debouncer.Call(text)
}

// Close cancels any pending lookup.
func (f *Feed) Close() {
	f.debouncer.Cancel()
}

// Current returns the last published suggestion list.
func (f *Feed) Current() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.current))
	copy(out, f.current)
	return out
}

// Clear drops the published list, as when a suggestion has been picked.
// Lookups already in flight are invalidated.
func (f *Feed) Clear() {
	f.debouncer.Cancel()
	f.mu.Lock()
	f.issued++
	f.current = []string{}
	cb := f.onPublish
	f.mu.Unlock()
	if cb != nil {
		cb([]string{})
	}
}

func (f *Feed) lookup(text string) {
	f.mu.Lock()
	f.issued++
	seq := f.issued
	f.mu.Unlock()

	ctx := context.Background()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.publish(seq, f.resolver.Resolve(ctx, text))
}

// publish stores list if seq is still the latest issued lookup and reports
// whether it did.
func (f *Feed) publish(seq uint64, list []string) bool {
	f.mu.Lock()
	if seq != f.issued {
		f.mu.Unlock()
		metrics.StaleResponsesDiscarded.WithLabelValues("suggestion").Inc()
		f.logger.Debug("suggest: discarding stale response", "feed", f.name, "seq", seq, "latest", f.issued)
		return false
	}
	f.current = list
	cb := f.onPublish
	f.mu.Unlock()

	if cb != nil {
		cb(list)
	}
	return true
}
