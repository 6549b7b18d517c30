// Package server provides the HTTP API for the ROI dashboard.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/database"
	"github.com/aristath/roi-tracker/internal/events"
	"github.com/aristath/roi-tracker/internal/history"
	"github.com/aristath/roi-tracker/internal/periodsync"
	"github.com/aristath/roi-tracker/internal/reliability"
)

// SyncController drives the period sync loop
type SyncController interface {
	Start(ctx context.Context) (string, bool)
	Reset(ctx context.Context) error
	Status() periodsync.Status
}

// HistoryReader lists persisted snapshots
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Latest(ctx context.Context) (*history.Entry, error)
}

// Backups triggers and lists off-site backups
type Backups interface {
	Enabled() bool
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// Config holds server dependencies. History, Backups and HistoryDB may be nil.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Store     *dashboard.Store
	Sync      SyncController
	Bus       *events.Bus
	History   HistoryReader
	Backups   Backups
	HistoryDB *database.DB
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	store     *dashboard.Store
	sync      SyncController
	bus       *events.Bus
	history   HistoryReader
	backups   Backups
	historyDB *database.DB
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		store:     cfg.Store,
		sync:      cfg.Sync,
		bus:       cfg.Bus,
		history:   cfg.History,
		backups:   cfg.Backups,
		historyDB: cfg.HistoryDB,
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: it would cut SSE and WebSocket streams.
		// Regular routes are bounded by middleware.Timeout instead.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived streams: no timeout, no compression
		r.Get("/events/stream", NewEventsStreamHandler(s.bus, s.log).ServeHTTP)
		r.Get("/ws", NewWSHandler(s.store, s.bus, s.log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", s.handleDashboard)
				r.Get("/chart", s.handleChart)
				r.Get("/detail", s.handleDetail)
				r.Post("/select/{index}", s.handleSelect)
			})

			r.Route("/sync", func(r chi.Router) {
				r.Post("/start", s.handleSyncStart)
				r.Post("/reset", s.handleSyncReset)
				r.Get("/status", s.handleSyncStatus)
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", s.handleHistoryList)
				r.Get("/latest", s.handleHistoryLatest)
			})

			system := NewSystemHandlers(s.sync, s.backups, s.historyDB, s.startedAt, s.log)
			r.Route("/system", func(r chi.Router) {
				r.Get("/status", system.HandleSystemStatus)
				r.Post("/backup", system.HandleTriggerBackup)
				r.Get("/backups", system.HandleListBackups)
			})
		})
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
