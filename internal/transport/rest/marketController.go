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

type MarketService interface {
	AddStock(ctx context.Context, stock model.Stock) error
	GetStock(ctx context.Context, symbol string) (model.Stock, error)
	GetStocks(ctx context.Context) ([]model.Stock, error)
}

type MarketController struct {
	srv MarketService
}

func NewMarketController(srv MarketService) *MarketController {
	return &MarketController{srv: srv}
}

func (c *MarketController) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/stocks", func(r chi.Router) {
		r.Post("/", c.addStock)
		r.Get("/", c.getStocks)
		r.Get("/{symbol}", c.getStock)
	})
}

type stockDto struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

func (c *MarketController) addStock(w http.ResponseWriter, r *http.Request) {
	var req stockDto
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, service.ErrInvalidStock)
		return
	}

	err := c.srv.AddStock(r.Context(), model.Stock{Symbol: req.Symbol, Name: req.Name, Price: req.Price})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

func (c *MarketController) getStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := c.srv.GetStocks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]stockDto, 0, len(stocks))
	for _, stock := range stocks {
		dtos = append(dtos, stockDto{Symbol: stock.Symbol, Name: stock.Name, Price: stock.Price})
	}

	writeJSON(w, http.StatusOK, dtos)
}

func (c *MarketController) getStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	stock, err := c.srv.GetStock(r.Context(), symbol)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stockDto{Symbol: stock.Symbol, Name: stock.Name, Price: stock.Price})
}
