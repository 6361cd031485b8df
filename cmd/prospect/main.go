package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prospectio/prospect/internal/cache"
	cacheRedis "github.com/prospectio/prospect/internal/cache/redis"
	"github.com/prospectio/prospect/internal/config"
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/es"
	logpkg "github.com/prospectio/prospect/internal/logger"
	"github.com/prospectio/prospect/internal/metrics"
	ledgerrepo "github.com/prospectio/prospect/internal/repository/ledger"
	registryrepo "github.com/prospectio/prospect/internal/repository/registry"
	creditsuc "github.com/prospectio/prospect/internal/usecase/credits"
	filtersuc "github.com/prospectio/prospect/internal/usecase/filters"
	searchuc "github.com/prospectio/prospect/internal/usecase/search"
	"github.com/prospectio/prospect/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prospect API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("ledger_driver", cfg.Ledger.Driver),
	)

	ctx := context.Background()

	// Register domain metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Filter cache based on driver
	var filterCache cache.Cache
	switch cfg.Cache.Driver {
	case "redis":
		redisCache, err := cacheRedis.New(cacheRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis cache", zap.Error(err))
		}
		defer redisCache.Close()
		if err := redisCache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadyTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		filterCache = redisCache
	default:
		filterCache = cache.NewMemory()
	}

	// Ledger and registry storage based on driver
	var (
		ledgerStore   creditsuc.Store
		filterStorage filtersuc.Registry
	)
	switch cfg.Ledger.Driver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.Ledger.PostgresDSN)
		if err != nil {
			logger.Fatal("Failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("Postgres not ready", zap.Error(err))
		}

		pgLedger := ledgerrepo.NewPostgresStore(db)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure ledger schema", zap.Error(err))
		}
		ledgerStore = pgLedger

		pgRegistry := registryrepo.NewPostgresStore(db)
		if err := pgRegistry.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure registry schema", zap.Error(err))
		}
		filterStorage = pgRegistry
	default:
		ledgerStore = ledgerrepo.NewMemoryStore()
		filterStorage = registryrepo.NewSeedStore()
	}

	// Search engine client
	engineAddr := "http://localhost:9200"
	if len(cfg.Engine.Addrs) > 0 {
		engineAddr = cfg.Engine.Addrs[0]
	}
	engine := es.NewHTTPClient(engineAddr, logger)

	indexes := make(map[entity.Type]string, len(cfg.Engine.Indexes))
	searchFields := make(map[entity.Type][]string, len(cfg.Engine.SearchFields))
	for name, index := range cfg.Engine.Indexes {
		indexes[entity.Type(name)] = index
	}
	for name, fields := range cfg.Engine.SearchFields {
		searchFields[entity.Type(name)] = fields
	}

	// Filter engine
	factory := filtersuc.NewFactory(engine, filterStorage, indexes)
	manager := filtersuc.NewManager(filterStorage, factory, filterCache, filtersuc.TTLConfig{
		Long:  time.Duration(cfg.Cache.LongTTLSec) * time.Second,
		Short: time.Duration(cfg.Cache.ShortTTLSec) * time.Second,
	}, logger, metrics.FilterValuesCacheTotal)

	// Use case services
	searchSvc := searchuc.New(engine, manager, searchuc.Config{
		Indexes:      indexes,
		SearchFields: searchFields,
	}, logger, metrics.SearchRequestsTotal, metrics.SearchRequestDuration)
	creditSvc := creditsuc.NewService(ledgerStore, creditsuc.Config{
		DefaultGrant: cfg.Ledger.DefaultGrant,
		Costs:        cfg.Ledger.Costs,
	}, logger, metrics.CreditSpendsTotal)

	// Warm the registry cache so the first request does not pay the miss.
	if _, err := manager.ActiveFilters(ctx); err != nil {
		logger.Warn("registry warmup failed", zap.Error(err))
	}

	// Operational HTTP surface: health, metrics, and ops endpoints. The
	// product API in front of this service owns the domain controllers.
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := engine.Ping(req.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("engine unreachable"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Ops: bust the filter registry cache after a definition change.
	r.Post("/internal/filters/invalidate", func(w http.ResponseWriter, req *http.Request) {
		if err := manager.InvalidateRegistry(req.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// Ops: recompute a workspace balance from its ledger.
	r.Post("/internal/ledger/{workspaceID}/reconcile", func(w http.ResponseWriter, req *http.Request) {
		workspaceID := chi.URLParam(req, "workspaceID")
		balance, err := creditSvc.ReconcileCredits(req.Context(), workspaceID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.CreditBalance.WithLabelValues(workspaceID).Set(float64(balance))
		_, _ = fmt.Fprintf(w, "%d\n", balance)
	})

	// Ops: dry-run a raw query against the engine and return the match count.
	// Lets operators validate client filter encodings without paging results.
	r.Get("/internal/search/{entity}/count", func(w http.ResponseWriter, req *http.Request) {
		ent := entity.Type(chi.URLParam(req, "entity"))
		parsed, err := searchSvc.ParseQuery(ent, req.URL.RawQuery)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n, err := searchSvc.Count(req.Context(), parsed)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprintf(w, "%d\n", n)
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
