package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trendbot/api"
	"trendbot/app"
	"trendbot/config"
	"trendbot/kafka"
	"trendbot/logging"
	"trendbot/scheduler"
	"trendbot/types"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger.Info("starting trendbot", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	var consumer *kafka.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		handler := kafka.ScrapeHandler(func(ctx context.Context, req types.ScrapeRequest) error {
			a.Pipeline.Run(ctx, req.Tenant, req.Sources, nil)
			return nil
		}, cfg.Tenant, logger)

		consumer, err = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RequestTopic,
			GroupID: cfg.Kafka.GroupID,
			Handler: handler,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn("failed to create kafka consumer", "err", err)
		} else if err := consumer.Start(ctx); err != nil {
			logger.Warn("failed to start kafka consumer", "err", err)
		}
	}

	sched := scheduler.New(a.Pipeline, []string{cfg.Tenant}, logger)
	if cfg.CronSchedule != "" {
		if err := sched.Start(ctx, cfg.CronSchedule); err != nil {
			logger.Error("failed to start cron", "err", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(&api.Server{
			Runner:        a.Pipeline,
			Duplicates:    a.Duplicates,
			Registry:      a.Store,
			DefaultTenant: cfg.Tenant,
			Logger:        logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka consumer close error", "err", err)
		}
	}
	logger.Info("server stopped")
}
