// Package httpapi exposes the daemon's control plane: status, the
// runtime data-flow graph, config file CRUD, bundle import/export, and
// a log read/tail API (spec §4.10). Grounded on go-chi/chi/v5, the
// HTTP router used directly (not just transitively) across the example
// pack, and on GoClode's flag-driven bootstrap for how the server
// itself is constructed and wired to its dependencies.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/orchestrator"
)

// Server holds the dependencies every route handler needs.
type Server struct {
	log       *zap.Logger
	store     *configstore.Store
	orch      *orchestrator.Orchestrator
	startedAt time.Time

	authToken      string
	fileOpsEnabled bool
}

// Options configures a Server.
type Options struct {
	AuthToken      string
	FileOpsEnabled bool
}

// New constructs a Server bound to store and orch.
func New(log *zap.Logger, store *configstore.Store, orch *orchestrator.Orchestrator, opts Options) *Server {
	return &Server{
		log:            log.Named("httpapi"),
		store:          store,
		orch:           orch,
		startedAt:      time.Now(),
		authToken:      opts.AuthToken,
		fileOpsEnabled: opts.FileOpsEnabled,
	}
}

// Router builds the chi.Mux for this server, following spec §4.10's
// route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Unauthenticated liveness probe, outside /api, for container
	// orchestrators that can't carry a bearer token.
	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/health", s.handleHealth)
		r.Get("/api/version", s.handleVersion)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/data-flow", s.handleDataFlow)

		r.Get("/api/config", s.handleGetConfig)
		r.Put("/api/config", s.handlePutConfig)
		r.Post("/api/config/reload", s.handleConfigReload)
		r.Get("/api/config/export", s.handleConfigExport)
		r.Post("/api/config/upload", s.handleConfigUpload)
		r.Get("/api/config/files", s.handleConfigFiles)
		r.Get("/api/config/file/{category}/{name}", s.handleConfigFileGet)
		r.Put("/api/config/file/{category}/{name}", s.handleConfigFilePut)
		r.Post("/api/config/file/{category}/{name}", s.handleConfigFilePut)
		r.Delete("/api/config/file/{category}/{name}", s.handleConfigFileDelete)

		r.Get("/api/logs/targets", s.handleLogTargets)
		r.Get("/api/logs/messages", s.handleLogMessages)
		r.Get("/api/logs/discover", s.handleLogDiscover)
		r.Get("/api/logs/read", s.handleLogRead)
		r.Get("/api/logs/tail", s.handleLogTail)
	})

	return r
}

// requestLogger tags every request with a short-lived correlation id
// (echoed back as X-Request-Id) so a line in the log can be traced to
// the response the caller received.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.log.Info("request",
			zap.String("requestId", reqID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// requireAuth enforces a bearer token match when s.authToken is set.
// An empty authToken disables auth entirely, matching a local/dev
// deployment with no control-plane exposure.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, req)
			return
		}
		got := req.Header.Get("Authorization")
		if got != "Bearer "+s.authToken {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, req)
	})
}
