package orderService

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/externalApi"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/service"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	InsertOrder(ctx context.Context, order model.Order) (orderID string, err error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]model.Order, error)
}

type EventBus interface {
	PublishAsync(ctx context.Context, stream string, payload []byte) <-chan error
}

type PriceCache interface {
	Get(symbol string) decimal.Decimal
	Set(symbol string, price decimal.Decimal)
}

type PositionApi interface {
	GetPositionByOrderID(ctx context.Context, orderID string) (model.Position, error)
}

// OrderService prices incoming orders against the latest cached quotes and
// feeds settled orders to the ledger through the order stream.
type OrderService struct {
	cfg         *config.Config
	repo        Repository
	bus         EventBus
	cache       PriceCache
	positionApi PositionApi
}

func New(cfg *config.Config, repo Repository, bus EventBus, cache PriceCache, positionApi PositionApi) *OrderService {
	return &OrderService{
		cfg:         cfg,
		repo:        repo,
		bus:         bus,
		cache:       cache,
		positionApi: positionApi,
	}
}

// HandlePriceUpdate is the price-stream consumer handler. Malformed payloads
// are logged and dropped, they never stop the consumer loop.
func (s *OrderService) HandlePriceUpdate(ctx context.Context, payload []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "OrderService.HandlePriceUpdate"

	var quote struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}

	if err := json.Unmarshal(payload, &quote); err != nil || quote.Symbol == "" {
		slog.Error(
			"malformed price update, dropping",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("payload", string(payload)),
		)
		return nil
	}

	s.cache.Set(quote.Symbol, quote.Price)

	slog.Debug(
		"price update applied",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("symbol", quote.Symbol),
		slog.String("price", quote.Price.String()),
	)

	return nil
}

// PlaceOrder values the request against the cached price, persists the order
// and then publishes the order event. Persistence happens before publish: the
// event always carries an id that already exists durably. A failed publish is
// logged but never rolls the order back, so the ledger may lag behind
// (at-least-once, best effort delivery).
func (s *OrderService) PlaceOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "OrderService.PlaceOrder"

	slog.Debug("PlaceOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("req", req))
	defer func() {
		slog.Debug("PlaceOrder finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if err := validateOrderRequest(req); err != nil {
		return model.Order{}, err
	}

	price := s.cache.Get(req.StockSymbol)
	totalPrice := price.Mul(decimal.NewFromInt(int64(req.Quantity)))

	status := model.OrderStatusOpen
	if req.PositionID != nil {
		status = model.OrderStatusClosed
	}

	order := model.Order{
		UserID:      req.UserID,
		StockSymbol: req.StockSymbol,
		Quantity:    req.Quantity,
		OrderType:   req.OrderType,
		Price:       totalPrice,
		PositionID:  req.PositionID,
		Status:      status,
	}

	orderID, err := s.repo.InsertOrder(ctx, order)
	if err != nil {
		slog.Error("got error from repo.InsertOrder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Order{}, err
	}
	order.ID = orderID

	s.publishOrderEvent(ctx, order)

	return order, nil
}

func (s *OrderService) publishOrderEvent(ctx context.Context, order model.Order) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "OrderService.publishOrderEvent"

	event := model.OrderEvent{
		ID:          order.ID,
		UserID:      order.UserID,
		StockSymbol: order.StockSymbol,
		Quantity:    order.Quantity,
		OrderType:   order.OrderType,
		Price:       order.Price,
		PositionID:  order.PositionID,
		PortfolioID: order.PortfolioID,
		Status:      order.Status,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("can't marshal order event", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}

	res := s.bus.PublishAsync(ctx, s.cfg.Bus.OrderStream, payload)

	// the order is already durable; the publish outcome is only logged
	go func() {
		if err := <-res; err != nil {
			slog.Error(
				"order event publish failed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("orderID", event.ID),
				slog.String("err", err.Error()),
			)
			return
		}
		slog.Debug("order event published", slog.String("rqID", rqID), slog.String("op", op), slog.String("orderID", event.ID))
	}()
}

func (s *OrderService) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "OrderService.GetOrdersByUser"

	slog.Debug("GetOrdersByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))

	orders, err := s.repo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetOrdersByUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return orders, nil
}

// GetOrderWithPosition returns the order together with the position the
// ledger settled for it. The position part stays nil while the ledger has
// not caught up yet.
func (s *OrderService) GetOrderWithPosition(ctx context.Context, orderID string) (model.OrderWithPosition, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "OrderService.GetOrderWithPosition"

	slog.Debug("GetOrderWithPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("orderID", orderID))

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.OrderWithPosition{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetOrder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.OrderWithPosition{}, err
	}

	res := model.OrderWithPosition{Order: order}

	position, err := s.positionApi.GetPositionByOrderID(ctx, orderID)
	if err != nil {
		if !errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("can't get position from portfolio service", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return res, nil
	}
	res.Position = &position

	return res, nil
}

func validateOrderRequest(req model.OrderRequest) error {
	if req.StockSymbol == "" || req.UserID == "" {
		return service.ErrInvalidOrder
	}
	if req.Quantity <= 0 {
		return service.ErrInvalidOrder
	}
	if req.OrderType != model.OrderTypeBuy && req.OrderType != model.OrderTypeSell {
		return service.ErrInvalidOrder
	}
	return nil
}
