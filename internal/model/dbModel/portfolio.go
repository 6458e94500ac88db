package dbModel

import "github.com/shopspring/decimal"

type Portfolio struct {
	PortfolioID     int64           `db:"portfolio_id"`
	UserID          string          `db:"user_id"`
	CashBalance     decimal.Decimal `db:"cash_balance"`
	TotalInvestment decimal.Decimal `db:"total_investment"`
	CurrentValue    decimal.Decimal `db:"current_value"`
	ProfitLoss      decimal.Decimal `db:"profit_loss"`
}

type Position struct {
	PositionID           int64           `db:"position_id"`
	PortfolioID          int64           `db:"portfolio_id"`
	Symbol               string          `db:"symbol"`
	Quantity             int             `db:"quantity"`
	BoughtAt             decimal.Decimal `db:"bought_at"`
	CurrentPrice         decimal.Decimal `db:"current_price"`
	InvestmentValue      decimal.Decimal `db:"investment_value"`
	CurrentValue         decimal.Decimal `db:"current_value"`
	ProfitLoss           decimal.Decimal `db:"profit_loss"`
	ProfitLossPercentage decimal.Decimal `db:"profit_loss_percentage"`
	OrderID              string          `db:"order_id"`
}
