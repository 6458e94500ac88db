// Package portfolioApi is the order service's client for the portfolio
// service's position lookup.
package portfolioApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/internal/externalApi"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

type PortfolioApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *PortfolioApi {
	client := resty.New().
		SetDebug(cfg.PortfolioAPI.Debug).
		SetTimeout(cfg.PortfolioAPI.Timeout).
		SetBaseURL(cfg.PortfolioAPI.Url)
	return &PortfolioApi{client: client}
}

type positionResponse struct {
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

func (a *PortfolioApi) GetPositionByOrderID(ctx context.Context, orderID string) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/api/v1/portfolios/positions/%s", orderID)

	slog.Debug("start PortfolioApi.GetPositionByOrderID request", slog.String("rqID", rqID), slog.String("orderID", orderID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		slog.Error("error while dialing PortfolioApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Position{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return model.Position{}, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("PortfolioApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return model.Position{}, fmt.Errorf("portfolio api status %d", resp.StatusCode())
	}

	var position positionResponse
	err = json.Unmarshal(resp.Body(), &position)
	if err != nil {
		slog.Error("can't unmarshall response into position", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Position{}, err
	}

	slog.Debug("PortfolioApi.GetPositionByOrderID request complete", slog.String("rqID", rqID))

	return model.Position{
		Symbol:               position.Symbol,
		Quantity:             position.Quantity,
		BoughtAt:             position.BoughtAt,
		CurrentPrice:         position.CurrentPrice,
		InvestmentValue:      position.InvestmentValue,
		CurrentValue:         position.CurrentValue,
		ProfitLoss:           position.ProfitLoss,
		ProfitLossPercentage: position.ProfitLossPercentage,
		OrderID:              position.OrderID,
	}, nil
}
