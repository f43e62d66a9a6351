// Package ledger keeps the most-recent-first list of searched city names.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultKey is the storage key the list is persisted under.
const DefaultKey = "recentCities"

// Storage is the persisted key-value service the ledger writes through.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Ledger is a bounded, case-insensitively deduplicated list of city names.
// The ledger is the only writer of its storage key.
type Ledger struct {
	storage Storage
	key     string
	limit   int
	logger  *slog.Logger

	mu     sync.Mutex
	cities []string
}

func New(storage Storage, limit int, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if limit < 1 {
		limit = 1
	}
	return &Ledger{
		storage: storage,
		key:     DefaultKey,
		limit:   limit,
		logger:  logger,
		cities:  []string{},
	}
}

// Load reads the persisted list. Missing, unreadable or malformed values
// leave the ledger empty; no error is ever returned to the caller.
func (l *Ledger) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cities = []string{}

	raw, ok, err := l.storage.Get(l.key)
	if err != nil {
		l.logger.Warn("ledger: read failed, starting empty", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}

	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		l.logger.Warn("ledger: malformed persisted list, starting empty", "error", err)
		return
	}

	// Re-apply the invariants in case the stored list was edited by hand.
	for _, name := range parsed {
		l.insertLocked(name, false)
	}
}

// Record moves name to the front of the list and persists the result.
// Blank names are ignored.
func (l *Ledger) Record(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.insertLocked(name, true) {
		return nil
	}

	data, err := json.Marshal(l.cities)
	if err != nil {
		return fmt.Errorf("encode recent cities: %w", err)
	}
	if err := l.storage.Set(l.key, string(data)); err != nil {
		return fmt.Errorf("persist recent cities: %w", err)
	}
	return nil
}

// insertLocked adds name at the front (or the back while loading) and
// reports whether anything changed.
func (l *Ledger) insertLocked(name string, front bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	kept := make([]string, 0, len(l.cities)+1)
	if front {
		kept = append(kept, name)
	}
	for _, c := range l.cities {
		if strings.EqualFold(c, name) {
			if !front {
				return false
			}
			continue
		}
		kept = append(kept, c)
	}
	if !front {
		kept = append(kept, name)
	}
	if len(kept) > l.limit {
		kept = kept[:l.limit]
	}
	l.cities = kept
	return true
}

// Cities returns a copy of the list, most recent first.
func (l *Ledger) Cities() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.cities))
	copy(out, l.cities)
	return out
}
