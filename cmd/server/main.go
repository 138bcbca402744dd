package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/config"
	"github.com/iliyamo/nexura/internal/database"
	"github.com/iliyamo/nexura/internal/logging"
	"github.com/iliyamo/nexura/internal/middleware"
	"github.com/iliyamo/nexura/internal/queue"
	"github.com/iliyamo/nexura/internal/repository"
	"github.com/iliyamo/nexura/internal/router"
	"github.com/iliyamo/nexura/internal/service"
	"github.com/iliyamo/nexura/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.Options{
		Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "nexura-api", Env: cfg.Env, Version: cfg.Version,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	db, err := database.Open(database.OptionsFrom(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		m, err := database.NewMigrator(db, database.DialectMySQL)
		if err != nil {
			return err
		}
		n, err := m.Up(context.Background())
		if err != nil {
			return err
		}
		logger.Info("migrations applied", zap.Int("count", n))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; using in-memory rate limits and no response cache")
	} else {
		defer rdb.Close()
	}

	events, err := queue.NewPublisher(config.LoadEventsConfig(), logger)
	if err != nil {
		return err
	}
	defer events.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	auth := service.NewAuthService(db, tokens, cfg.BcryptCost, service.AuthOptions{Events: events, Metrics: metrics})

	e := router.New(router.Deps{
		Config:     cfg,
		RateLimit:  config.LoadRateLimitConfig(),
		LoginLimit: config.LoadLoginRateLimitConfig(),
		Logger:     logger,
		DB:         db,
		Redis:      rdb,
		Gatherer:   reg,
		Metrics:    metrics,
		Cache:      cache,
		Tokens:     tokens,
		Auth:       auth,
		Users:      service.NewUserService(repository.NewUserRepo(db), nil),
		Habits:     service.NewHabitService(db, cache, nil),
		Goals:      service.NewGoalService(db, cache, nil),
		Expenses:   service.NewExpenseService(db, cache, nil),
		Timeline:   service.NewTimelineService(repository.NewTimelineRepo(db), nil),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("prefix", "/"+cfg.APIPrefix))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
