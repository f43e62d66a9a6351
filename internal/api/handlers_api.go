package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIPanels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.allSnapshots())
}

func (s *Server) handleAPIPanel(w http.ResponseWriter, r *http.Request) {
	st, ok := s.snapshot(r.PathValue("panel"))
	if !ok {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	p, ok := s.app.Panel(r.PathValue("panel"))
	if !ok {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))
	st := p.Search(r.Context(), r.FormValue("q"), force)

	// Plain HTML form submissions go back to the page.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Redirect(w, r, "/#panel-"+st.Panel, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAPIInput(w http.ResponseWriter, r *http.Request) {
	f, ok := s.app.Feed(r.PathValue("panel"))
	if !ok {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}
	f.Input(r.FormValue("q"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAPIPick(w http.ResponseWriter, r *http.Request) {
	st, ok := s.app.Pick(r.Context(), r.PathValue("panel"), r.FormValue("q"))
	if !ok {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAPISuggestions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("panel")
	f, ok := s.app.Feed(name)
	if !ok {
		http.Error(w, "unknown panel", http.StatusNotFound)
		return
	}

	s.mu.RLock()
	list, ok := s.suggestions[name]
	s.mu.RUnlock()
	if !ok {
		list = f.Current()
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAPIRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.RecentCities())
}

func (s *Server) handleAPISuggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Suggest(r.Context(), r.FormValue("q")))
}

func (s *Server) handleAPIFetches(w http.ResponseWriter, r *http.Request) {
	if s.fetches == nil {
		http.Error(w, "fetch audit disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.fetches.RecentFetchRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := s.fetches.FetchStatsSince(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, FetchesResponse{
		Last24h: stats,
		Runs:    newFetchRunViews(runs),
	})
}
