package marketService

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/service"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	InsertStock(ctx context.Context, stock model.Stock) error
	GetStock(ctx context.Context, symbol string) (model.Stock, error)
	GetStocks(ctx context.Context) ([]model.Stock, error)
	UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) error
}

type EventBus interface {
	Publish(ctx context.Context, stream string, payload []byte) error
}

type Broadcaster interface {
	Broadcast(msg []byte)
}

// MarketService owns the stock catalog and the price feed sweep.
type MarketService struct {
	cfg        *config.Config
	repo       Repository
	bus        EventBus
	hub        Broadcaster
	policy     PricePolicy
	priceFloor decimal.Decimal
}

func New(cfg *config.Config, repo Repository, bus EventBus, hub Broadcaster, policy PricePolicy, priceFloor decimal.Decimal) *MarketService {
	return &MarketService{
		cfg:        cfg,
		repo:       repo,
		bus:        bus,
		hub:        hub,
		policy:     policy,
		priceFloor: priceFloor,
	}
}

func (s *MarketService) AddStock(ctx context.Context, stock model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.AddStock"

	slog.Debug("AddStock start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("stock", stock))
	defer func() {
		slog.Debug("AddStock finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if stock.Symbol == "" || stock.Price.IsNegative() {
		return service.ErrInvalidStock
	}

	err := s.repo.InsertStock(ctx, stock)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return service.ErrAlreadyExists
		}
		slog.Error("got error from repo.InsertStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *MarketService) GetStock(ctx context.Context, symbol string) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.GetStock"

	slog.Debug("GetStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	stock, err := s.repo.GetStock(ctx, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Stock{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}

	return stock, nil
}

func (s *MarketService) GetStocks(ctx context.Context) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.GetStocks"

	slog.Debug("GetStocks start", slog.String("rqID", rqID), slog.String("op", op))

	stocks, err := s.repo.GetStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.GetStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return stocks, nil
}

// GeneratePriceUpdates is the scheduler job: one sweep over every known
// stock. Per stock it perturbs the price, clamps it at the floor, persists
// it, publishes a quote on the price stream and pushes the same payload to
// live subscribers. A failing stock never stops the sweep; a failed publish
// never rolls back the persisted price.
func (s *MarketService) GeneratePriceUpdates(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.GeneratePriceUpdates"

	slog.Debug("GeneratePriceUpdates start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GeneratePriceUpdates finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	stocks, err := s.repo.GetStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.GetStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, stock := range stocks {
		newPrice := s.policy.Perturb(stock.Price)
		if newPrice.LessThan(s.priceFloor) {
			newPrice = s.priceFloor
		}

		err = s.repo.UpdateStockPrice(ctx, stock.Symbol, newPrice)
		if err != nil {
			slog.Error(
				"can't persist new price, skipping stock",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", stock.Symbol),
				slog.String("err", err.Error()),
			)
			continue
		}

		quote := model.PriceQuote{
			StockName: stock.Name,
			Symbol:    stock.Symbol,
			Price:     newPrice,
		}

		payload, err := json.Marshal(quote)
		if err != nil {
			slog.Error("can't marshal price quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			continue
		}

		// price is already persisted; a failed publish is logged and the
		// sweep moves on
		err = s.bus.Publish(ctx, s.cfg.Bus.PriceStream, payload)
		if err != nil {
			slog.Error(
				"can't publish price quote",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", stock.Symbol),
				slog.String("err", err.Error()),
			)
		}

		s.hub.Broadcast(payload)
	}

	return nil
}
