package model

import "github.com/shopspring/decimal"

type Stock struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}
