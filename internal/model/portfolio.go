package model

import "github.com/shopspring/decimal"

type Portfolio struct {
	ID              int64
	UserID          string
	CashBalance     decimal.Decimal
	TotalInvestment decimal.Decimal
	CurrentValue    decimal.Decimal
	ProfitLoss      decimal.Decimal
}

type Position struct {
	ID                   int64
	PortfolioID          int64
	Symbol               string
	Quantity             int
	BoughtAt             decimal.Decimal
	CurrentPrice         decimal.Decimal
	InvestmentValue      decimal.Decimal
	CurrentValue         decimal.Decimal
	ProfitLoss           decimal.Decimal
	ProfitLossPercentage decimal.Decimal
	OrderID              string
}

// PortfolioResponse aggregates are recomputed from positions on every read,
// they are never incrementally maintained on the write path.
type PortfolioResponse struct {
	UserID               string          `json:"userId"`
	CashBalance          decimal.Decimal `json:"cashBalance"`
	TotalInvestment      decimal.Decimal `json:"totalInvestment"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
	Positions            []PositionInfo  `json:"positions"`
}

type PositionInfo struct {
	Symbol               string          `json:"symbol"`
	Quantity             int             `json:"quantity"`
	CurrentPrice         decimal.Decimal `json:"currentPrice"`
	InvestmentValue      decimal.Decimal `json:"investmentValue"`
	CurrentValue         decimal.Decimal `json:"currentValue"`
	ProfitLoss           decimal.Decimal `json:"profitLoss"`
	ProfitLossPercentage decimal.Decimal `json:"profitLossPercentage"`
}
