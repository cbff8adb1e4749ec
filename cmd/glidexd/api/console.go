package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleConsoleInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.mgr.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConsoleInfo(rec))
}
