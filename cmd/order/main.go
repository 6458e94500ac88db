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
	"github.com/papertrade/papertrade/internal/externalApi/portfolioApi"
	"github.com/papertrade/papertrade/internal/logger"
	"github.com/papertrade/papertrade/internal/pricecache"
	"github.com/papertrade/papertrade/internal/service/orderService"
	"github.com/papertrade/papertrade/internal/transport/rest"
	"github.com/papertrade/papertrade/internal/transport/rest/middleware"
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

	defaultPrice, err := decimal.NewFromString(cfg.DefaultStockPrice)
	if err != nil {
		slog.Error("can't parse default stock price", slog.String("err", err.Error()))
		panic(err)
	}
	cache := pricecache.New(defaultPrice)

	positionApi := portfolioApi.New(cfg)

	orderSrv := orderService.New(cfg, pgRepo, eventBus, cache, positionApi)

	// price stream consumer keeps the cache warm; the consumer name is
	// stable so unacked entries are redelivered after a restart
	go func() {
		err := eventBus.Subscribe(ctx, cfg.Bus.PriceStream, cfg.Bus.OrderGroup, cfg.Bus.Consumer, orderSrv.HandlePriceUpdate)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("price stream subscription failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	rest.NewOrderController(orderSrv).RegisterRoutes(router)

	server := rest.NewServer(cfg.Order, router)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()
	slog.Info("order service started", slog.Int("port", cfg.Order.Port))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Order.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
	}
}
