package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const moscowCurrent = `{
	"coord": {"lon": 37.6156, "lat": 55.7522},
	"weather": [{"id": 804, "main": "Clouds", "description": "пасмурно"}],
	"main": {"temp": -3.2, "feels_like": -8.1, "pressure": 1021, "humidity": 86},
	"visibility": 7500,
	"wind": {"speed": 4.3, "deg": 220},
	"dt": 1767225600,
	"sys": {"country": "RU"},
	"name": "Москва",
	"cod": 200
}`

type fakeRecorder struct {
	mu   sync.Mutex
	runs []FetchRun
}

func (f *fakeRecorder) RecordFetch(run FetchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeRecorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rec := &fakeRecorder{}
	client := NewClient(Options{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Units:     "metric",
		Lang:      "ru",
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Burst:     100,
		RetryFor:  time.Millisecond,
		Recorder:  rec,
	})
	return client, rec
}

func TestGeocodeByName(t *testing.T) {
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointWeather {
			t.Errorf("path = %q, want %q", r.URL.Path, EndpointWeather)
		}
		q := r.URL.Query()
		if q.Get("q") != "Moscow" {
			t.Errorf("q = %q, want Moscow", q.Get("q"))
		}
		if q.Get("appid") != "test-key" || q.Get("units") != "metric" || q.Get("lang") != "ru" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(moscowCurrent))
	})

	got, err := client.GeocodeByName(context.Background(), "Moscow")
	if err != nil {
		t.Fatalf("GeocodeByName: %v", err)
	}

	if got.Identity.DisplayName != "Москва" || got.Identity.CountryCode != "RU" {
		t.Errorf("Identity = %+v", got.Identity)
	}
	if got.Identity.Latitude != 55.7522 || got.Identity.Longitude != 37.6156 {
		t.Errorf("coords = %v,%v", got.Identity.Latitude, got.Identity.Longitude)
	}
	if got.Current.TemperatureC != -3.2 || got.Current.FeelsLikeC != -8.1 {
		t.Errorf("temps = %v/%v", got.Current.TemperatureC, got.Current.FeelsLikeC)
	}
	if got.Current.HumidityPct != 86 || got.Current.PressureHpa != 1021 {
		t.Errorf("humidity/pressure = %d/%d", got.Current.HumidityPct, got.Current.PressureHpa)
	}
	if got.Current.VisibilityKm == nil || *got.Current.VisibilityKm != 7.5 {
		t.Errorf("VisibilityKm = %v, want 7.5", got.Current.VisibilityKm)
	}
	if got.Current.Description != "пасмурно" {
		t.Errorf("Description = %q", got.Current.Description)
	}

	if len(rec.runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(rec.runs))
	}
	if rec.runs[0].HTTPStatus != 200 || rec.runs[0].Err != nil {
		t.Errorf("run = %+v", rec.runs[0])
	}
}

func TestGeocodeByName_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	_, err := client.GeocodeByName(context.Background(), "Qwxyzinvalidcity")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Code != "404" || apiErr.Message != "city not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestGeocodeByName_MalformedPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"coord":`))
	})

	_, err := client.GeocodeByName(context.Background(), "Moscow")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("malformed payload must not be reported as not found")
	}
}

func TestGeocodeByName_IncompleteIdentity(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"coord":{"lat":1,"lon":2},"name":"","sys":{"country":""}}`))
	})

	if _, err := client.GeocodeByName(context.Background(), "x"); err == nil {
		t.Fatal("expected error for incomplete identity")
	}
}

func TestServerError_RetriedThenReported(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"cod":429,"message":"limit exceeded"}`))
	})

	_, err := client.ForecastByCoords(context.Background(), 1, 2)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Code != "429" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if calls.Load() < 1 {
		t.Error("expected at least one upstream call")
	}
}

func TestForecastByCoords(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointForecast {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("lat") != "55.75" || r.URL.Query().Get("lon") != "37.61" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"list":[
			{"dt":1767225600,"main":{"temp":-3},"weather":[{"description":"снег"}]},
			{"dt":1767236400,"main":{"temp":-4.5},"weather":[]}
		]}`))
	})

	samples, err := client.ForecastByCoords(context.Background(), 55.75, 37.61)
	if err != nil {
		t.Fatalf("ForecastByCoords: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	if samples[0].EpochSeconds != 1767225600 || samples[0].Description != "снег" {
		t.Errorf("samples[0] = %+v", samples[0])
	}
	if samples[1].TemperatureC != -4.5 || samples[1].Description != "" {
		t.Errorf("samples[1] = %+v", samples[1])
	}
}

func TestSearchCities_LocalizedNames(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointDirect {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`[
			{"name":"Paris","local_names":{"ru":"Париж"},"country":"FR","lat":48.85,"lon":2.35},
			{"name":"Paris","country":"US","lat":33.66,"lon":-95.55}
		]`))
	})

	cities, err := client.SearchCities(context.Background(), "paris", 5)
	if err != nil {
		t.Fatalf("SearchCities: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("len(cities) = %d", len(cities))
	}
	if cities[0].Name != "Париж" || cities[0].Country != "FR" {
		t.Errorf("cities[0] = %+v", cities[0])
	}
	if cities[1].Name != "Paris" || cities[1].Country != "US" {
		t.Errorf("cities[1] = %+v", cities[1])
	}
}

func TestReverseGeocode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"localized", `[{"name":"Moscow","local_names":{"ru":"Москва"}}]`, "Москва"},
		{"fallback to name", `[{"name":"Moscow"}]`, "Moscow"},
		{"no results", `[]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != EndpointReverse {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			})
			got, err := client.ReverseGeocode(context.Background(), 55.75, 37.61, 1)
			if err != nil {
				t.Fatalf("ReverseGeocode: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReverseGeocode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextCanceled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(moscowCurrent))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.CurrentByCoords(ctx, 1, 2); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
