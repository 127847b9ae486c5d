package adapthttp

import (
	"errors"
	"net/http"

	"bodysync/internal/app"
)

var errSyncRunning = errors.New("a sync run is already in progress")

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, errSyncRunning)
		return
	}
	defer s.running.Unlock()

	res := s.syncer.Run(r.Context())
	writeJSON(w, StatusForResult(res), res)
}

// StatusForResult maps a run result to an HTTP status code.
func StatusForResult(res app.Result) int {
	if res.Status == app.StatusSuccess {
		return http.StatusOK
	}
	switch res.Kind {
	case "upstream", "protocol", "data":
		return http.StatusBadGateway
	case "persistence":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
