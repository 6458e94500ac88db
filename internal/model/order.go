package model

import "github.com/shopspring/decimal"

const (
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"

	OrderStatusOpen   = "OPEN"
	OrderStatusClosed = "CLOSED"
)

// OrderRequest is the inbound order form. PositionID is set when the order
// closes an existing position.
type OrderRequest struct {
	StockSymbol string
	Quantity    int
	OrderType   string
	UserID      string
	PositionID  *int64
}

// Order is immutable after creation. Price is the order total, not the
// per-share price.
type Order struct {
	ID          string
	UserID      string
	StockSymbol string
	Quantity    int
	OrderType   string
	Price       decimal.Decimal
	PositionID  *int64
	PortfolioID *int64
	Status      string
}

type OrderWithPosition struct {
	Order    Order
	Position *Position
}
