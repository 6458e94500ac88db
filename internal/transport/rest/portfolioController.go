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

type PortfolioService interface {
	GetPortfolio(ctx context.Context, userID string) (model.PortfolioResponse, error)
	DepositFunds(ctx context.Context, userID string, amount decimal.Decimal) error
	WithdrawFunds(ctx context.Context, userID string, amount decimal.Decimal) error
	GetPosition(ctx context.Context, orderID string) (model.Position, error)
	DeletePortfolio(ctx context.Context, userID string) error
}

type PortfolioController struct {
	srv PortfolioService
}

func NewPortfolioController(srv PortfolioService) *PortfolioController {
	return &PortfolioController{srv: srv}
}

func (c *PortfolioController) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/portfolios", func(r chi.Router) {
		r.Get("/positions/{orderID}", c.getPosition)
		r.Get("/{userID}", c.getPortfolio)
		r.Delete("/{userID}", c.deletePortfolio)
		r.Post("/{userID}/deposit", c.depositFunds)
		r.Post("/{userID}/withdraw", c.withdrawFunds)
	})
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ledgerPositionDto struct {
	Symbol               string          `json:"symbol"`
	Quantity             int             `json:"quantity"`
	BoughtAt             decimal.Decimal `json:"boughtAt"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	InvestmentValue      decimal.Decimal `json:"investmentValue"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	OrderID              string          `json:"orderId"`
}

func (c *PortfolioController) getPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	portfolio, err := c.srv.GetPortfolio(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, portfolio)
}

func (c *PortfolioController) depositFunds(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, service.ErrInvalidAmount)
		return
	}

	if err := c.srv.DepositFunds(r.Context(), userID, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (c *PortfolioController) withdrawFunds(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, service.ErrInvalidAmount)
		return
	}

	if err := c.srv.WithdrawFunds(r.Context(), userID, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (c *PortfolioController) getPosition(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	position, err := c.srv.GetPosition(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ledgerPositionDto{
		Symbol:               position.Symbol,
		Quantity:             position.Quantity,
		BoughtAt:             position.BoughtAt,
		CurrentPrice:         position.CurrentPrice,
		InvestmentValue:      position.InvestmentValue,
		CurrentValue:         position.CurrentValue,
		ProfitLoss:           position.ProfitLoss,
		ProfitLossPercentage: position.ProfitLossPercentage,
		OrderID:              position.OrderID,
	})
}

func (c *PortfolioController) deletePortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := c.srv.DeletePortfolio(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
