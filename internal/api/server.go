package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/torvik/resellerpanel/internal/api/handler"
	mw "github.com/torvik/resellerpanel/internal/api/middleware"
	"github.com/torvik/resellerpanel/internal/config"
	"github.com/torvik/resellerpanel/internal/core"
	"github.com/torvik/resellerpanel/internal/dnscheck"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, temporalClient temporalclient.Client, cfg *config.Config) *Server {
	services := core.NewServices(pool, temporalClient, dnscheck.NewResolver())

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		pool:           pool,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.pool))

		// Dashboard
		dashboard := handler.NewDashboard(s.services.Dashboard)
		r.Get("/dashboard/stats", dashboard.Stats)

		// Settings
		setting := handler.NewSetting(s.services.Settings)
		r.Get("/settings", setting.List)
		r.Put("/settings/{key}", setting.Put)

		// Integration diagnostics
		diagnostics := handler.NewDiagnostics(s.services.Settings)
		r.Get("/diagnostics/cloudflare", diagnostics.Cloudflare)
		r.Get("/diagnostics/google-ca", diagnostics.GoogleCA)

		// Hosting accounts
		account := handler.NewHostingAccount(s.services.HostingAccount)
		r.Get("/accounts", account.List)
		r.Post("/accounts", account.Create)
		r.Get("/accounts/{id}", account.Get)
		r.Put("/accounts/{id}/status", account.SetStatus)
		r.Delete("/accounts/{id}", account.Delete)

		// Certificates
		cert := handler.NewCertificate(s.services.Certificate)
		r.Get("/accounts/{accountID}/certificates", cert.ListByAccount)
		r.Post("/accounts/{accountID}/certificates", cert.Create)
		r.Post("/accounts/{accountID}/certificates/upload", cert.Upload)
		r.Get("/certificates/{id}", cert.Get)
		r.Get("/certificates/{id}/events", cert.Events)
		r.Post("/certificates/{id}/start-verification", cert.StartVerification)
		r.Post("/certificates/{id}/verify-domain", cert.VerifyDomain)
		r.Post("/certificates/{id}/issue", cert.Issue)
		r.Post("/certificates/{id}/retry", cert.Retry)

		// API keys
		apiKey := handler.NewAPIKey(s.services.APIKey)
		r.Get("/api-keys", apiKey.List)
		r.Post("/api-keys", apiKey.Create)
		r.Delete("/api-keys/{id}", apiKey.Revoke)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
