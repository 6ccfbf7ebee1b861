// Package api exposes the HTTP surface of Kestrel.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-wellness/kestrel/internal/assess"
	"github.com/opensource-wellness/kestrel/internal/domain"
	"github.com/opensource-wellness/kestrel/internal/ledger"
	"github.com/opensource-wellness/kestrel/internal/report"
	"github.com/opensource-wellness/kestrel/internal/rolling"
	"github.com/opensource-wellness/kestrel/internal/screening"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, ledgerSvc *ledger.Service, counters *rolling.Service, processor *assess.Processor, reports *report.Generator, engine *screening.Engine, version string) *Server {
	handler := NewHandler(repo, cache, ledgerSvc, counters, processor, reports, engine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health and metrics endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Handle("/metrics", promhttp.Handler())

	// Users and balances
	router.Route("/users", func(r chi.Router) {
		r.Post("/", handler.CreateUser)
		r.Get("/", handler.ListUsers)
		r.Get("/at-risk", handler.ListUsersAtRisk)
		r.Get("/{id}", handler.GetUser)
		r.Get("/{id}/profile", handler.GetProfile)

		r.Post("/{id}/deposit", handler.Deposit)
		r.Post("/{id}/withdraw", handler.Withdraw)
		r.Get("/{id}/ledger", handler.GetLedger)
		r.Get("/{id}/wagers", handler.ListUserWagers)

		r.Post("/{id}/assess", handler.Assess)
		r.Get("/{id}/behaviors", handler.ListBehaviors)

		r.Post("/{id}/reports", handler.GenerateReport)
		r.Post("/{id}/reports/monthly", handler.GenerateMonthlyReport)
		r.Post("/{id}/reports/weekly", handler.GenerateWeeklyReport)
		r.Get("/{id}/reports", handler.ListUserReports)

		r.Get("/{id}/interventions", handler.ListInterventions)
		r.Get("/{id}/interventions/pending", handler.ListPendingInterventions)

		r.Get("/{id}/activities/suggestion", handler.SuggestActivity)
	})

	// Wagers
	router.Route("/wagers", func(r chi.Router) {
		r.Post("/", handler.PlaceWager)
		r.Get("/{id}", handler.GetWager)
		r.Post("/{id}/settle", handler.SettleWager)
	})

	// Behaviors
	router.Route("/behaviors", func(r chi.Router) {
		r.Post("/{id}/notify", handler.MarkBehaviorNotified)
		r.Post("/{id}/action", handler.MarkBehaviorActioned)
	})

	// Reports
	router.Get("/reports/{id}", handler.GetReport)

	// Interventions
	router.Route("/interventions", func(r chi.Router) {
		r.Get("/urgent", handler.ListUrgentInterventions)
		r.Post("/{id}/view", handler.ViewIntervention)
		r.Post("/{id}/accept", handler.AcceptIntervention)
	})

	// Activity catalog
	router.Get("/activities", handler.ListActivities)

	// Screen rule management
	router.Route("/rules", func(r chi.Router) {
		r.Get("/", handler.ListRules)
		r.Get("/{id}", handler.GetRule)
		r.Post("/", handler.CreateRule)
		r.Delete("/{id}", handler.DeleteRule)
		r.Post("/reload", handler.ReloadRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
