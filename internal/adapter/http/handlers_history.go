package adapthttp

import (
	"errors"
	"net/http"

	"bodysync/internal/app"
)

var errNoLedger = errors.New("sync ledger is not configured")

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errNoLedger)
		return
	}
	limit := intQuery(r, "limit", 30)
	items, err := s.history.ListRecent(r.Context(), limit, r.URL.Query().Get("unit"))
	if errors.Is(err, app.ErrInvalidUnit) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleHistoryDaily(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errNoLedger)
		return
	}
	days := intQuery(r, "days", 30)
	points, err := s.history.Daily(r.Context(), days, r.URL.Query().Get("unit"))
	if errors.Is(err, app.ErrInvalidUnit) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": points})
}
