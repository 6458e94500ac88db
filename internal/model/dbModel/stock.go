package dbModel

import "github.com/shopspring/decimal"

type Stock struct {
	Symbol string          `db:"symbol"`
	Name   string          `db:"name"`
	Price  decimal.Decimal `db:"price"`
}
