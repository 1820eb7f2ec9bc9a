package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pgstay/internal/app"
	"pgstay/internal/config"
	"pgstay/internal/database"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if err := database.Migrate(a.DB); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	sweeps := scheduler.New(a.Payments, cfg.SweepSchedule, cfg.PaymentOrderTTL, logger.Component(log, "scheduler"))
	if err := sweeps.Start(); err != nil {
		log.WithError(err).Fatal("scheduler failed to start")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).WithField("env", cfg.AppEnv).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	sweeps.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown incomplete")
	}
}
