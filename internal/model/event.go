package model

import "github.com/shopspring/decimal"

// PriceQuote is the price-topic wire format. Price marshals as a quoted
// decimal string; consumers accept string or number.
type PriceQuote struct {
	StockName string          `json:"stockName"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
}

// OrderEvent is the order-topic wire format. ID carries the generated order
// id, never a client-supplied one. Delivery is at-least-once.
type OrderEvent struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	StockSymbol string          `json:"stockSymbol"`
	Quantity    int             `json:"quantity"`
	OrderType   string          `json:"orderType"`
	Price       decimal.Decimal `json:"price"`
	PositionID  *int64          `json:"positionId,omitempty"`
	PortfolioID *int64          `json:"portfolioId,omitempty"`
	Status      string          `json:"status"`
}
