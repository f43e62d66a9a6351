// Package api serves the panels over HTTP. It is the rendering boundary:
// every panel snapshot and published suggestion list is delivered to the
// Server, which keeps the latest of each for clients to read.
package api

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lox/weatherpanel/internal/app"
	"github.com/lox/weatherpanel/internal/panel"
	"github.com/lox/weatherpanel/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FetchLog exposes the upstream fetch audit.
type FetchLog interface {
	RecentFetchRuns(limit int) ([]store.FetchRunRecord, error)
	FetchStatsSince(since time.Time) (store.FetchStats, error)
}

type Server struct {
	port   string
	tmpl   *template.Template
	logger *slog.Logger

	app     *app.App
	fetches FetchLog

	mu          sync.RWMutex
	snapshots   map[string]panel.State
	suggestions map[string][]string
}

// NewServer creates a server with no application attached. Render and
// PublishSuggestions may be wired into the application before Attach is
// called.
func NewServer(port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:        port,
		tmpl:        newTemplates(),
		logger:      logger,
		snapshots:   make(map[string]panel.State),
		suggestions: make(map[string][]string),
	}
}

// Attach connects the application and the fetch audit. fetches may be nil.
func (s *Server) Attach(a *app.App, fetches FetchLog) {
	s.app = a
	s.fetches = fetches
}

// Render records the latest snapshot of a panel.
func (s *Server) Render(st panel.State) {
	s.mu.Lock()
	s.snapshots[st.Panel] = st
	s.mu.Unlock()
}

// PublishSuggestions records the latest suggestion list of a panel input.
func (s *Server) PublishSuggestions(name string, list []string) {
	s.mu.Lock()
	s.suggestions[name] = list
	s.mu.Unlock()
}

func (s *Server) snapshot(name string) (panel.State, bool) {
	s.mu.RLock()
	st, ok := s.snapshots[name]
	s.mu.RUnlock()
	if ok {
		return st, true
	}
	p, ok := s.app.Panel(name)
	if !ok {
		return panel.State{}, false
	}
	return p.State(), true
}

func (s *Server) allSnapshots() []panel.State {
	out := make([]panel.State, 0, 3)
	for _, name := range app.PanelNames() {
		if st, ok := s.snapshot(name); ok {
			out = append(out, st)
		}
	}
	return out
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/panels", s.handleAPIPanels)
	mux.HandleFunc("GET /api/panels/{panel}", s.handleAPIPanel)
	mux.HandleFunc("POST /api/panels/{panel}/search", s.handleAPISearch)
	mux.HandleFunc("POST /api/panels/{panel}/input", s.handleAPIInput)
	mux.HandleFunc("POST /api/panels/{panel}/pick", s.handleAPIPick)
	mux.HandleFunc("GET /api/panels/{panel}/suggestions", s.handleAPISuggestions)
	mux.HandleFunc("GET /api/recent", s.handleAPIRecent)
	mux.HandleFunc("GET /api/suggest", s.handleAPISuggest)
	mux.HandleFunc("GET /api/fetches", s.handleAPIFetches)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api: listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
