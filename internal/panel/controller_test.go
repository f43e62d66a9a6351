package panel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/lox/weatherpanel/internal/models"
	"github.com/lox/weatherpanel/internal/query"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	// gates hold ByName for the given text until closed.
	gates   map[string]chan struct{}
	started chan string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (f *fakeResolver) ByName(ctx context.Context, text string) (*query.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate := f.gates[text]
	f.mu.Unlock()

	f.started <- text
	if gate != nil {
		<-gate
	}

	if strings.HasPrefix(strings.ToLower(text), "qwxyz") {
		return nil, fmt.Errorf("geocode %q: %w", text, query.ErrNotFound)
	}
	if text == "broken" {
		return nil, fmt.Errorf("geocode: %w", query.ErrUpstream)
	}
	return &query.Result{
		Identity: models.LocationIdentity{Latitude: 48.85, Longitude: 2.35, DisplayName: text, CountryCode: "FR"},
		Current:  models.CurrentConditions{TemperatureC: 20, Description: "clear sky"},
		ForecastRaw: []models.ForecastSample{
			{EpochSeconds: 1767225600, TemperatureC: 10, Description: "clear sky"},
			{EpochSeconds: 1767225600 + 3*3600, TemperatureC: 14, Description: "clouds"},
			{EpochSeconds: 1767225600 + 24*3600, TemperatureC: 5, Description: "snow"},
		},
	}, nil
}

func (f *fakeResolver) ByCoords(ctx context.Context, lat, lon float64) (*query.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "coords")
	f.mu.Unlock()
	return &query.Result{
		Identity: models.LocationIdentity{Latitude: lat, Longitude: lon, DisplayName: "Москва", CountryCode: "RU"},
	}, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStorage() *memStorage { return &memStorage{values: map[string]string{}} }

func (m *memStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type fakeLedger struct{ names []string }

func (l *fakeLedger) Record(name string) error {
	l.names = append(l.names, name)
	return nil
}

type renderLog struct {
	mu     sync.Mutex
	states []State
}

func (r *renderLog) render(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func setupPrimary(t *testing.T) (*Controller, *fakeResolver, *memStorage, *fakeLedger, *renderLog) {
	t.Helper()
	res := newFakeResolver()
	st := newMemStorage()
	led := &fakeLedger{}
	rl := &renderLog{}
	c := New(res, st, Options{
		Name:         "main",
		StorageKey:   "lastCityInput",
		Primary:      true,
		ForecastDays: 5,
		Ledger:       led,
		Render:       rl.render,
	})
	return c, res, st, led, rl
}

func TestSearch_Success(t *testing.T) {
	c, _, st, led, rl := setupPrimary(t)

	s := c.Search(context.Background(), "  Paris ", false)
	if s.Status != StatusReady {
		t.Fatalf("Status = %s, want ready", s.Status)
	}
	if s.Identity == nil || s.Identity.Label() != "Paris, FR" {
		t.Errorf("Identity = %+v", s.Identity)
	}
	if len(s.Forecast) != 2 {
		t.Fatalf("Forecast len = %d, want 2", len(s.Forecast))
	}
	if s.Forecast[0].MeanTemperatureC != 12 {
		t.Errorf("first bucket mean = %v, want 12", s.Forecast[0].MeanTemperatureC)
	}
	if s.QueryText != "Paris" {
		t.Errorf("QueryText = %q, want Paris", s.QueryText)
	}
	if got := st.values["lastCityInput"]; got != "  Paris " {
		t.Errorf("persisted = %q, want raw input %q", got, "  Paris ")
	}
	if s.ByCoords {
		t.Error("ByCoords set on a name search")
	}
	if len(led.names) != 1 || led.names[0] != "Paris, FR" {
		t.Errorf("ledger = %v", led.names)
	}

	if len(rl.states) != 2 {
		t.Fatalf("renders = %d, want 2", len(rl.states))
	}
	if !rl.states[0].IsLoading || rl.states[0].Status != StatusLoading {
		t.Errorf("first render = %+v, want loading", rl.states[0])
	}
	if rl.states[1].IsLoading {
		t.Errorf("final render still loading")
	}
}

func TestSearch_DuplicateWhileLoading(t *testing.T) {
	c, res, _, _, _ := setupPrimary(t)
	gate := make(chan struct{})
	res.gates["Paris"] = gate

	done := make(chan State)
	go func() { done <- c.Search(context.Background(), "Paris", false) }()
	<-res.started

	s := c.Search(context.Background(), "paris", false)
	if s.Status != StatusLoading {
		t.Errorf("duplicate returned %s, want loading snapshot", s.Status)
	}

	close(gate)
	if final := <-done; final.Status != StatusReady {
		t.Errorf("Status = %s, want ready", final.Status)
	}
	if n := res.callCount(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}

	// A repeat after success is also suppressed.
	c.Search(context.Background(), "PARIS", false)
	if n := res.callCount(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestSearch_ForceBypassesDedup(t *testing.T) {
	c, res, _, _, _ := setupPrimary(t)

	c.Search(context.Background(), "Paris", false)
	c.Search(context.Background(), "Paris", true)
	if n := res.callCount(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestSearch_NotFound(t *testing.T) {
	c, _, st, led, _ := setupPrimary(t)

	c.Search(context.Background(), "Paris", false)
	s := c.Search(context.Background(), "Qwxyzinvalidcity", false)

	if s.Status != StatusError || s.ErrorKind != ErrNotFound {
		t.Fatalf("state = %s/%s, want error/NotFound", s.Status, s.ErrorKind)
	}
	if s.Identity != nil || s.Current != nil || len(s.Forecast) != 0 {
		t.Errorf("stale data left on failed panel: %+v", s)
	}
	if s.Message != Message(ErrNotFound) {
		t.Errorf("Message = %q", s.Message)
	}
	if st.values["lastCityInput"] != "Paris" {
		t.Errorf("persisted query changed to %q", st.values["lastCityInput"])
	}
	if len(led.names) != 1 {
		t.Errorf("ledger mutated on failure: %v", led.names)
	}
}

func TestSearch_FailureAllowsRetry(t *testing.T) {
	c, res, _, _, _ := setupPrimary(t)

	s := c.Search(context.Background(), "broken", false)
	if s.ErrorKind != ErrUpstream {
		t.Fatalf("ErrorKind = %s, want UpstreamError", s.ErrorKind)
	}
	c.Search(context.Background(), "broken", false)
	if n := res.callCount(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestSearch_Blank(t *testing.T) {
	tests := []struct {
		name    string
		primary bool
		want    Status
		kind    ErrorKind
	}{
		{name: "primary", primary: true, want: StatusError, kind: ErrEmptyQuery},
		{name: "secondary", primary: false, want: StatusIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newFakeResolver()
			c := New(res, newMemStorage(), Options{Name: "p", StorageKey: "k", Primary: tt.primary, ForecastDays: 2})

			s := c.Search(context.Background(), "   ", false)
			if s.Status != tt.want || s.ErrorKind != tt.kind {
				t.Errorf("state = %s/%s, want %s/%s", s.Status, s.ErrorKind, tt.want, tt.kind)
			}
			if n := res.callCount(); n != 0 {
				t.Errorf("upstream calls = %d, want 0", n)
			}
		})
	}
}

func TestSearch_StaleCompletionDiscarded(t *testing.T) {
	res := newFakeResolver()
	st := newMemStorage()
	c := New(res, st, Options{Name: "extra1", StorageKey: "extraCity1", ForecastDays: 2})

	gate := make(chan struct{})
	res.gates["Berlin"] = gate

	done := make(chan State)
	go func() { done <- c.Search(context.Background(), "Berlin", false) }()
	<-res.started

	s := c.Search(context.Background(), "Rome", false)
	if s.Status != StatusReady || s.Identity.DisplayName != "Rome" {
		t.Fatalf("state = %+v, want Rome ready", s)
	}

	close(gate)
	<-done

	final := c.State()
	if final.Identity == nil || final.Identity.DisplayName != "Rome" {
		t.Errorf("stale Berlin result overwrote panel: %+v", final.Identity)
	}
	if st.values["extraCity1"] != "Rome" {
		t.Errorf("persisted = %q, want Rome", st.values["extraCity1"])
	}
}

func TestSecondary_NotDeduplicatedAndNoLedger(t *testing.T) {
	res := newFakeResolver()
	led := &fakeLedger{}
	c := New(res, newMemStorage(), Options{Name: "extra2", StorageKey: "extraCity2", ForecastDays: 2, Ledger: led})

	c.Search(context.Background(), "Oslo", false)
	c.Search(context.Background(), "Oslo", false)
	if n := res.callCount(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
	if len(led.names) != 0 {
		t.Errorf("secondary panel wrote ledger: %v", led.names)
	}
}

func TestSearchCoords(t *testing.T) {
	c, _, st, led, _ := setupPrimary(t)

	s := c.SearchCoords(context.Background(), 55.75, 37.62)
	if s.Status != StatusReady || s.QueryText != "Москва" {
		t.Fatalf("state = %s %q", s.Status, s.QueryText)
	}
	if st.values["lastCityInput"] != "Москва" {
		t.Errorf("persisted = %q", st.values["lastCityInput"])
	}
	if len(led.names) != 1 || led.names[0] != "Москва, RU" {
		t.Errorf("ledger = %v", led.names)
	}
	if !s.ByCoords {
		t.Error("ByCoords = false after coordinate search")
	}

	if s = c.Search(context.Background(), "Paris", false); s.ByCoords {
		t.Error("ByCoords still set after a name search")
	}
}

func TestRestore(t *testing.T) {
	c, res, st, _, _ := setupPrimary(t)

	if _, ok := c.Restore(context.Background()); ok {
		t.Fatal("Restore reported success with nothing persisted")
	}

	st.values["lastCityInput"] = "Kazan"
	s, ok := c.Restore(context.Background())
	if !ok || s.Status != StatusReady {
		t.Fatalf("Restore = %v %s", ok, s.Status)
	}
	if n := res.callCount(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}
