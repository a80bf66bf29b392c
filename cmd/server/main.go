package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/sukha-pms/internal/config"
	"github.com/iliyamo/sukha-pms/internal/database"
	"github.com/iliyamo/sukha-pms/internal/handler"
	"github.com/iliyamo/sukha-pms/internal/logger"
	"github.com/iliyamo/sukha-pms/internal/metrics"
	"github.com/iliyamo/sukha-pms/internal/middleware"
	"github.com/iliyamo/sukha-pms/internal/model"
	"github.com/iliyamo/sukha-pms/internal/queue"
	"github.com/iliyamo/sukha-pms/internal/repository"
	"github.com/iliyamo/sukha-pms/internal/router"
	"github.com/iliyamo/sukha-pms/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "sukha-pms")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	units := repository.NewUnitRepo(db)
	stays := repository.NewStayRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	if err := bootstrapAdmin(ctx, cfg, users, log); err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitURL, log)
		go func() {
			if err := queue.StartStayConsumer(ctx, cfg.RabbitURL, cfg.EventLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("stay consumer stopped", zap.Error(err))
			}
		}()
	}
	ledger := service.NewLedger(repository.NewLedgerStore(db, units, stays), events, m, log, cfg.Location)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else if cfg.RateLimit.Enabled || cfg.Cache.Enabled {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	}
	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)

	e := router.New(router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users, tokens, log),
		Stays:     handler.NewStayHandler(ledger, cache, log),
		Units:     handler.NewUnitHandler(units, ledger, cache, log),
		Users:     users,
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     cache,
		Metrics:   promhttp.Handler(),
		Log:       log,
		Stats:     m,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// bootstrapAdmin creates the configured admin account on first start.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *repository.UserRepo, log *zap.Logger) error {
	if cfg.BootstrapAdminUsername == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	id, err := users.Create(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword, "Administrator", model.RoleAdmin, cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info("bootstrap admin created", zap.Uint64("user_id", id))
	return nil
}
