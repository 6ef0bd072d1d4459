// Package web provides the HTTP server and handlers for the central
// data repository API.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/centralrepo/centralrepo/internal/config"
	"github.com/centralrepo/centralrepo/internal/limiter"
	"github.com/centralrepo/centralrepo/internal/repository"
)

// Server is the HTTP server for the repository API.
type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server

	formats      *repository.FormatRepo
	sessions     *repository.SessionRepo
	records      *repository.RecordRepo
	entitlements *repository.EntitlementRepo
	users        *repository.UserRepo
	grants       *limiter.Controller
}

// NewServer wires the repositories and routes on top of the pool.
func NewServer(cfg *config.Config, pool *pgxpool.Pool) (*Server, error) {
	formats, err := repository.NewFormatRepo(pool)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:          cfg,
		router:       chi.NewRouter(),
		formats:      formats,
		sessions:     repository.NewSessionRepo(pool),
		records:      repository.NewRecordRepo(pool),
		entitlements: repository.NewEntitlementRepo(pool),
		users:        repository.NewUserRepo(pool),
		grants:       limiter.New(cfg.Export.MaxStreamsPerUser),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metricsMiddleware)

	if s.cfg.Rate.Enabled {
		rl := newIPLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst)
		s.router.Use(rl.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	auth := &authenticator{secret: []byte(s.cfg.Auth.JWTSecret), users: s.users}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.middleware)

		// Record ingestion and search. The CSV export streams for as
		// long as the result set takes, so it skips the request
		// timeout the JSON routes run under.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			r.Post("/record", s.handleUploadRecords)
			r.Post("/record/search", s.handleSearchRecords)
		})
		r.Post("/record/search/csv", s.handleExportRecords)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			// Formats readable by every authenticated user.
			r.Get("/format", s.handleListFormats)
			r.Get("/format/{formatID}", s.handleGetFormat)

			// Upload sessions.
			r.Get("/upload-session", s.handleListSessions)
			r.Get("/upload-session/{sessionID}", s.handleGetSession)

			// Administration.
			r.Group(func(r chi.Router) {
				r.Use(requireSuperuser)
				r.Post("/format", s.handleCreateFormat)
				r.Delete("/format/{formatID}", s.handleDeleteFormat)
				r.Delete("/upload-session/{sessionID}", s.handleDeleteSession)
				r.Post("/entitlement", s.handleCreateEntitlement)
				r.Get("/entitlement", s.handleListEntitlements)
				r.Delete("/entitlement/{userID}/{formatID}", s.handleDeleteEntitlement)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // zero: CSV exports stream
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
