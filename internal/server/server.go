// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"trendscope/internal/adapter/storage"
	"trendscope/internal/config"
	"trendscope/internal/server/handlers"
)

// Dependencies are the services the HTTP API exposes
type Dependencies struct {
	Store     storage.Store
	Collector handlers.Collector
	Jobs      handlers.Jobs
	Cadences  handlers.CadenceValidator
	Reports   handlers.TestSender

	// NATS and EventSubject feed /ws/events; a nil connection disables it
	NATS         *nats.Conn
	EventSubject string

	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	dashboardHandler := handlers.NewDashboardHandler(deps.Store, logger)
	trendHandler := handlers.NewTrendHandler(deps.Store, logger)
	suggestionHandler := handlers.NewSuggestionHandler(deps.Store, logger)
	reportHandler := handlers.NewReportHandler(deps.Store, logger)
	sourceHandler := handlers.NewSourceHandler(deps.Store, logger)
	settingHandler := handlers.NewSettingHandler(deps.Store, deps.Cadences, logger)
	pipelineHandler := handlers.NewPipelineHandler(deps.Collector, deps.Jobs, deps.Reports, logger)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", dashboardHandler.Health)
		r.Get("/analytics", dashboardHandler.GetAnalytics)
		r.Get("/dashboard", dashboardHandler.GetDashboard)

		r.Route("/trends", func(r chi.Router) {
			r.Get("/", trendHandler.GetTrends)
			r.Get("/{id}", trendHandler.GetTrend)
		})

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", suggestionHandler.GetSuggestions)
			r.Get("/{id}", suggestionHandler.GetSuggestion)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reportHandler.GetReports)
			r.Post("/generate", pipelineHandler.GenerateReport)
			r.Get("/{id}", reportHandler.GetReport)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", sourceHandler.GetSources)
			r.Get("/{id}", sourceHandler.GetSource)
			r.Put("/{id}/status", sourceHandler.UpdateStatus)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingHandler.GetSettings)
			r.Get("/{key}", settingHandler.GetSetting)
			r.Put("/{key}", settingHandler.UpdateSetting)
		})

		r.Post("/scrape", pipelineHandler.Scrape)
		r.Post("/analyze", pipelineHandler.Analyze)
		r.Post("/email/test", pipelineHandler.SendTestEmail)
		r.Get("/scheduler/status", pipelineHandler.SchedulerStatus)
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Live pipeline events for the dashboard
	router.Get("/ws/events", handlers.EventStreamHandler(deps.NATS, deps.EventSubject, logger))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
