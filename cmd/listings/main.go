package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/listing-platform/internal/authclient"
	"github.com/iliyamo/listing-platform/internal/config"
	"github.com/iliyamo/listing-platform/internal/database"
	"github.com/iliyamo/listing-platform/internal/handler"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/middleware"
	"github.com/iliyamo/listing-platform/internal/queue"
	"github.com/iliyamo/listing-platform/internal/repository"
	"github.com/iliyamo/listing-platform/internal/repository/memory"
	"github.com/iliyamo/listing-platform/internal/router"
	"github.com/iliyamo/listing-platform/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadListings()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  repository.ListingRepository
		checks []handler.Check
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.NewListingStore()
		logger.Warn("using in-memory listing storage", "event", "storage_memory", "module", "listings", "layer", "bootstrap")
	default:
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Error("open mongo", "event", "mongo_open_failed", "module", "listings", "layer", "bootstrap", "error", err.Error())
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		if err := database.EnsureListingIndexes(ctx, coll); err != nil {
			logger.Warn("create listing indexes", "event", "mongo_index_failed", "module", "listings", "layer", "bootstrap", "error", err.Error())
		}
		repo := repository.NewListingRepo(coll)
		store = repo
		checks = append(checks, handler.Check{Name: "mongo", Ping: repo.Ping})
	}

	// Redis is optional; without it reads are served uncached.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		logger.Warn("redis unavailable, response cache disabled", "event", "cache_disabled", "module", "listings", "layer", "bootstrap")
	}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger)

	var events service.EventPublisher
	if cfg.Events.Enabled {
		pub := queue.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, logger)
		defer pub.Close()
		events = pub
	}
	if cfg.AuditConsumer {
		go func() {
			err := queue.StartAuditConsumer(ctx, cfg.Events.URL, cfg.Events.Exchange, cfg.AuditLogPath, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", "event", "audit_consumer_stopped", "module", "listings", "layer", "worker", "error", err.Error())
			}
		}()
	}

	verifier := authclient.New(cfg.AuthServiceURL, cfg.AuthTimeout,
		authclient.WithRetries(cfg.AuthRetries, cfg.AuthRetryBackoff),
		authclient.WithLogger(logger),
	)
	listings := service.NewListingService(store, cache, events, logger)

	e := router.New(router.Options{Module: "listings", CORSOrigins: cfg.CORSOrigins, Logger: logger})
	router.RegisterHealth(e, checks...)
	router.RegisterListings(e, handler.NewListingHandler(listings), router.ListingDeps{
		Verifier: verifier,
		Cache:    cache,
		Prober:   verifier,
		Logger:   logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listings service listening", "event", "http_listen", "module", "listings", "layer", "bootstrap",
			"addr", addr, "env", cfg.Env, "auth_service", cfg.AuthServiceURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "event", "http_server_failed", "module", "listings", "layer", "bootstrap", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "event", "http_shutdown_failed", "module", "listings", "layer", "bootstrap", "error", err.Error())
	}
	logger.Info("listings service stopped", "event", "http_stopped", "module", "listings", "layer", "bootstrap")
}
