// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"trendscope/internal/adapter/events"
	"trendscope/internal/adapter/mailer"
	"trendscope/internal/adapter/reasoner"
	"trendscope/internal/adapter/scraper"
	"trendscope/internal/adapter/storage"
	"trendscope/internal/config"
	"trendscope/internal/logging"
	"trendscope/internal/metrics"
	"trendscope/internal/server"
	"trendscope/internal/service/analysis"
	"trendscope/internal/service/collection"
	"trendscope/internal/service/reporting"
	"trendscope/internal/service/scheduler"
)

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer closeStore()

	if err := storage.Seed(ctx, store); err != nil {
		logger.WithError(err).Fatal("Failed to seed storage")
	}

	natsConn := initNATS(cfg.NATS, logger)
	if natsConn != nil {
		defer natsConn.Close()
	}
	publisher := events.NewPublisher(natsConn, cfg.NATS.EventsTopic, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	aggregator := collection.NewAggregator(
		initCollectors(cfg.Scrapers, logger),
		collection.Config{
			MaxConcurrent: cfg.Collection.MaxConcurrent,
			SourceTimeout: cfg.Collection.SourceTimeout,
		},
		logger,
		collection.WithSourceFilter(store),
		collection.WithMetrics(m),
	)

	llm := reasoner.NewOpenAI(reasoner.Config{
		APIKey:  cfg.LLM.APIKey,
		APIURL:  cfg.LLM.APIURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	if cfg.LLM.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, analysis cycles will fail")
	}

	smtpMailer := mailer.NewSMTPMailer(mailer.Config{
		Host:          cfg.Email.Host,
		Port:          cfg.Email.Port,
		User:          cfg.Email.User,
		Password:      cfg.Email.Password,
		From:          cfg.Email.From,
		FromName:      cfg.Email.FromName,
		MaxConcurrent: cfg.Email.MaxConcurrent,
	}, logger)

	analyzer := analysis.NewOrchestrator(
		aggregator,
		llm,
		store,
		analysis.Config{StageTimeout: cfg.Analysis.StageTimeout},
		logger,
		analysis.WithPublisher(publisher),
		analysis.WithMetrics(m),
	)

	reports := reporting.NewOrchestrator(
		store,
		llm,
		smtpMailer,
		reporting.Config{
			Lookback:     cfg.Report.Lookback,
			StageTimeout: cfg.Report.StageTimeout,
			DashboardURL: cfg.Report.DashboardURL,
		},
		logger,
		reporting.WithPublisher(publisher),
		reporting.WithMetrics(m),
	)

	sched := scheduler.New(store, analyzer, reports, logger, scheduler.WithMetrics(m))
	if err := sched.Start(ctx); err != nil {
		// The API stays up; on-demand runs still work without triggers
		logger.WithError(err).Error("Failed to start scheduler")
	}

	httpServer := server.NewServer(cfg.Server, server.Dependencies{
		Store:        store,
		Collector:    aggregator,
		Jobs:         sched,
		Cadences:     sched,
		Reports:      reports,
		NATS:         natsConn,
		EventSubject: publisher.Wildcard(),
		Gatherer:     registry,
	}, logger)

	go func() {
		logger.WithFields(logrus.Fields{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	<-shutdown
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
	}

	sched.Stop(shutdownCtx)
	cancel()

	logger.Info("Shutdown complete")
}

// initStore selects the persistence backend
func initStore(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (storage.Store, func(), error) {
	if cfg.Storage.Driver != config.DriverPostgres {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStore(), func() {}, nil
	}

	pool, err := storage.Connect(ctx, storage.PoolConfig{
		DSN:         cfg.Database.DSN(),
		MaxConns:    cfg.Database.MaxOpenConns,
		MinConns:    cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	logger.WithField("host", cfg.Database.Host).Info("Using postgres storage")
	return store, pool.Close, nil
}

// initNATS connects when enabled. Failures leave events disabled.
func initNATS(cfg config.NATSConfig, logger logrus.FieldLogger) *nats.Conn {
	if !cfg.Enabled {
		return nil
	}

	nc, err := events.Connect(events.Config{
		URL:            cfg.URL,
		MaxReconnects:  cfg.MaxReconnects,
		ReconnectWait:  cfg.ReconnectWait,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("NATS unavailable, pipeline events disabled")
		return nil
	}
	return nc
}

// initCollectors builds the five platform collectors in registration order
func initCollectors(cfg config.ScrapersConfig, logger logrus.FieldLogger) []collection.Collector {
	opts := scraper.Options{
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		UserAgent:  cfg.UserAgent,
		Logger:     logger,
	}

	reddit := scraper.NewReddit(opts)
	if len(cfg.Subreddits) > 0 {
		reddit.Subreddits = cfg.Subreddits
	}

	return []collection.Collector{
		reddit,
		scraper.NewGoogleTrends(opts),
		scraper.NewTikTok(opts),
		scraper.NewTwitter(cfg.TwitterBearerToken, opts),
		scraper.NewFashionBlogs(opts),
	}
}
