// Package adapthttp is the driving HTTP adapter for serve mode.
package adapthttp

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"bodysync/internal/app"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Syncer runs one sync pass.
type Syncer interface {
	Run(ctx context.Context) app.Result
}

// Server routes requests to the sync and history services.
type Server struct {
	syncer      Syncer
	history     *app.HistoryService
	triggerHash []byte
	logger      *slog.Logger

	// running serializes sync runs; overlapping triggers are refused.
	running sync.Mutex
}

// Options configures optional Server behaviour.
type Options struct {
	// TriggerTokenHash is a bcrypt hash. When set, POST /api/sync requires a
	// matching bearer token.
	TriggerTokenHash string
	Logger           *slog.Logger
}

// New creates a Server. history may be nil when no ledger is configured.
func New(s Syncer, history *app.HistoryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{syncer: s, history: history, logger: logger}
	if opts.TriggerTokenHash != "" {
		srv.triggerHash = []byte(opts.TriggerTokenHash)
	}
	return srv
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(withNoCache)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		r.With(s.triggerAuth).Post("/sync", s.handleSync)
		r.Get("/history", s.handleHistory)
		r.Get("/history/daily", s.handleHistoryDaily)
	})
	return r
}
