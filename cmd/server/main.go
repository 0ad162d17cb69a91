package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/push-dispatch/internal/api"
	"github.com/notifyhub/push-dispatch/internal/config"
	"github.com/notifyhub/push-dispatch/internal/db"
	"github.com/notifyhub/push-dispatch/internal/fanout"
	"github.com/notifyhub/push-dispatch/internal/metrics"
	"github.com/notifyhub/push-dispatch/internal/provider"
	"github.com/notifyhub/push-dispatch/internal/ratelimiter"
	"github.com/notifyhub/push-dispatch/internal/repository"
	"github.com/notifyhub/push-dispatch/internal/service"
	"github.com/notifyhub/push-dispatch/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	subs := repository.NewPgSubscriptionRepository(pool)
	events := repository.NewPgEventRepository(pool)

	prov := provider.NewWebPushProvider(
		cfg.VAPIDPublicKey,
		cfg.VAPIDPrivateKey,
		cfg.VAPIDSubscriber,
		cfg.PushTTL,
		cfg.PushTimeout,
	)
	limiter := ratelimiter.New(cfg.DeliveryRate)

	onDelivered, onFailed := m.FanoutHooks()
	engine := fanout.New(prov, limiter, cfg.MaxInFlight, logger, fanout.Hooks{
		OnDelivered: onDelivered,
		OnFailed:    onFailed,
	})

	onFanout, onPruned, onAcknowledged := m.PipelineHooks()
	svc := service.NewDispatchService(subs, events, engine, logger, service.Hooks{
		OnFanout:       onFanout,
		OnPruned:       onPruned,
		OnAcknowledged: onAcknowledged,
	})

	// ---- background janitor ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	janitor := worker.NewJanitor(events, cfg.JanitorInterval, cfg.EventRetention, logger)
	go janitor.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, cfg.AllowedOrigins, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// Stop accepting new HTTP requests; in-flight dispatches finish within
	// the write timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancelWorkers()

	logger.Info("server stopped cleanly")
}
