package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/service"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetOrderWithPosition(ctx context.Context, orderID string) (model.OrderWithPosition, error)
}

type OrderController struct {
	srv OrderService
}

func NewOrderController(srv OrderService) *OrderController {
	return &OrderController{srv: srv}
}

func (c *OrderController) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", c.placeOrder)
		r.Get("/user/{userID}", c.getOrdersByUser)
		r.Get("/{orderID}", c.getOrderWithPosition)
	})
}

type placeOrderRequest struct {
	StockSymbol string `json:"stockSymbol"`
	Quantity    int    `json:"quantity"`
	OrderType   string `json:"orderType"`
	UserID      string `json:"userId"`
	PositionID  *int64 `json:"positionId,omitempty"`
}

type orderDto struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	StockSymbol string          `json:"stockSymbol"`
	Quantity    int             `json:"quantity"`
	OrderType   string          `json:"orderType"`
	Price       decimal.Decimal `json:"price"`
	PositionID  *int64          `json:"positionId,omitempty"`
	Status      string          `json:"status"`
}

type orderWithPositionDto struct {
	Order    orderDto     `json:"order"`
	Position *positionDto `json:"position,omitempty"`
}

type positionDto struct {
	Symbol               string          `json:"symbol"`
	Quantity             int             `json:"quantity"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	InvestmentValue      decimal.Decimal `json:"investmentValue"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
}

func toOrderDto(order model.Order) orderDto {
	return orderDto{
		ID:          order.ID,
		UserID:      order.UserID,
		StockSymbol: order.StockSymbol,
		Quantity:    order.Quantity,
		OrderType:   order.OrderType,
		Price:       order.Price,
		PositionID:  order.PositionID,
		Status:      order.Status,
	}
}

func (c *OrderController) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, service.ErrInvalidOrder)
		return
	}

	order, err := c.srv.PlaceOrder(r.Context(), model.OrderRequest{
		StockSymbol: req.StockSymbol,
		Quantity:    req.Quantity,
		OrderType:   req.OrderType,
		UserID:      req.UserID,
		PositionID:  req.PositionID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderDto(order))
}

func (c *OrderController) getOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	orders, err := c.srv.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]orderDto, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDto(order))
	}

	writeJSON(w, http.StatusOK, dtos)
}

func (c *OrderController) getOrderWithPosition(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	res, err := c.srv.GetOrderWithPosition(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	dto := orderWithPositionDto{Order: toOrderDto(res.Order)}
	if res.Position != nil {
		dto.Position = &positionDto{
			Symbol:               res.Position.Symbol,
			Quantity:             res.Position.Quantity,
			CurrentPrice:         res.Position.CurrentPrice,
			InvestmentValue:      res.Position.InvestmentValue,
			CurrentValue:         res.Position.CurrentValue,
			ProfitLoss:           res.Position.ProfitLoss,
			ProfitLossPercentage: res.Position.ProfitLossPercentage,
		}
	}

	writeJSON(w, http.StatusOK, dto)
}
