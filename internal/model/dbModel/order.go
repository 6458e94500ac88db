package dbModel

import "github.com/shopspring/decimal"

type Order struct {
	OrderID     string          `db:"order_id"`
	UserID      string          `db:"user_id"`
	StockSymbol string          `db:"stock_symbol"`
	Quantity    int             `db:"quantity"`
	OrderType   string          `db:"order_type"`
	Price       decimal.Decimal `db:"price"`
	PositionID  *int64          `db:"position_id"`
	PortfolioID *int64          `db:"portfolio_id"`
	Status      string          `db:"status"`
}
