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

	"github.com/iliyamo/listing-platform/internal/config"
	"github.com/iliyamo/listing-platform/internal/database"
	"github.com/iliyamo/listing-platform/internal/handler"
	"github.com/iliyamo/listing-platform/internal/logging"
	"github.com/iliyamo/listing-platform/internal/queue"
	"github.com/iliyamo/listing-platform/internal/repository"
	"github.com/iliyamo/listing-platform/internal/repository/memory"
	"github.com/iliyamo/listing-platform/internal/router"
	"github.com/iliyamo/listing-platform/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.LoadAuth()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		accounts repository.AccountRepository
		tokens   repository.TokenRepository
		checks   []handler.Check
	)
	switch cfg.Storage {
	case config.StorageMemory:
		accounts, tokens = memory.NewAccountStore(), memory.NewTokenStore()
		logger.Warn("using in-memory account storage", "event", "storage_memory", "module", "auth", "layer", "bootstrap")
	default:
		db, err := database.OpenMySQL(cfg.MySQL)
		if err != nil {
			logger.Error("open mysql", "event", "mysql_open_failed", "module", "auth", "layer", "bootstrap", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := database.EnsureAuthSchema(ctx, db); err != nil {
			logger.Error("migrate schema", "event", "schema_failed", "module", "auth", "layer", "bootstrap", "error", err.Error())
			os.Exit(1)
		}
		accounts, tokens = repository.NewAccountRepo(db), repository.NewTokenRepo(db)
		checks = append(checks, handler.Check{Name: "mysql", Ping: db.PingContext})
	}

	var events service.EventPublisher
	if cfg.Events.Enabled {
		pub := queue.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, logger)
		defer pub.Close()
		events = pub
	}

	auth := service.NewAuthService(accounts, tokens, cfg.BcryptCost, events, logger)

	e := router.New(router.Options{Module: "auth", CORSOrigins: cfg.CORSOrigins, Logger: logger})
	router.RegisterHealth(e, checks...)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), auth)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("auth service listening", "event", "http_listen", "module", "auth", "layer", "bootstrap", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "event", "http_server_failed", "module", "auth", "layer", "bootstrap", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "event", "http_shutdown_failed", "module", "auth", "layer", "bootstrap", "error", err.Error())
	}
	logger.Info("auth service stopped", "event", "http_stopped", "module", "auth", "layer", "bootstrap")
}
