package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data"
	"github.com/papertrade/papertrade/data/bus"
	"github.com/papertrade/papertrade/data/repository/postgres"
	"github.com/papertrade/papertrade/internal/logger"
	"github.com/papertrade/papertrade/internal/service/portfolioService"
	"github.com/papertrade/papertrade/internal/transport/rest"
	"github.com/papertrade/papertrade/internal/transport/rest/middleware"
)

func main() {
	cfg := config.MustLoad()

	logger.Setup(cfg.LogLevel)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	eventBus := bus.NewRedisBus(redisClient, cfg)

	portfolioSrv := portfolioService.New(cfg, pgRepo)

	// order stream consumer settles orders into positions; the consumer
	// name is stable so unacked entries are redelivered after a restart
	go func() {
		err := eventBus.Subscribe(ctx, cfg.Bus.OrderStream, cfg.Bus.PortfolioGroup, cfg.Bus.Consumer, portfolioSrv.HandleOrderEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("order stream subscription failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	rest.NewPortfolioController(portfolioSrv).RegisterRoutes(router)

	server := rest.NewServer(cfg.Portfolio, router)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()
	slog.Info("portfolio service started", slog.Int("port", cfg.Portfolio.Port))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Portfolio.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}
