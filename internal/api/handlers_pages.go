package api

import (
	"net/http"

	"github.com/lox/weatherpanel/internal/app"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := IndexData{Recent: s.app.RecentCities()}

	s.mu.RLock()
	suggestions := make(map[string][]string, len(s.suggestions))
	for k, v := range s.suggestions {
		suggestions[k] = v
	}
	s.mu.RUnlock()

	for _, st := range s.allSnapshots() {
		data.Panels = append(data.Panels, PanelView{
			Name:        st.Panel,
			Title:       panelTitles[st.Panel],
			Primary:     st.Panel == app.PanelMain,
			State:       st,
			Suggestions: suggestions[st.Panel],
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("api: render index failed", "error", err)
	}
}
