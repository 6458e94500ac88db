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
	"github.com/papertrade/papertrade/internal/scheduler"
	"github.com/papertrade/papertrade/internal/service/marketService"
	"github.com/papertrade/papertrade/internal/transport/rest"
	"github.com/papertrade/papertrade/internal/transport/rest/middleware"
	"github.com/papertrade/papertrade/internal/transport/ws"
	"github.com/shopspring/decimal"
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

	hub := ws.NewHub()
	go hub.Run()

	policy, err := marketService.PolicyFromConfig(cfg)
	if err != nil {
		slog.Error("can't build price policy", slog.String("err", err.Error()))
		panic(err)
	}

	priceFloor, err := decimal.NewFromString(cfg.Feed.PriceFloor)
	if err != nil {
		slog.Error("can't parse price floor", slog.String("err", err.Error()))
		panic(err)
	}

	marketSrv := marketService.New(cfg, pgRepo, eventBus, hub, policy, priceFloor)

	sched := scheduler.New()
	sched.NewIntervalJob("generate price updates", marketSrv.GeneratePriceUpdates, cfg.Feed.Interval, false)
	sched.Start()
	defer sched.Stop()

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	rest.NewMarketController(marketSrv).RegisterRoutes(router)
	router.Get("/ws", hub.HandleWS)

	server := rest.NewServer(cfg.Market, router)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()
	slog.Info("market service started", slog.Int("port", cfg.Market.Port))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Market.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}
