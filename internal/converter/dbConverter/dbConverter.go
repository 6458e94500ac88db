package dbConverter

import (
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/model/dbModel"
)

func ConvertStock(s dbModel.Stock) model.Stock {
	return model.Stock{
		Symbol: s.Symbol,
		Name:   s.Name,
		Price:  s.Price,
	}
}

func ConvertOrder(o dbModel.Order) model.Order {
	return model.Order{
		ID:          o.OrderID,
		UserID:      o.UserID,
		StockSymbol: o.StockSymbol,
		Quantity:    o.Quantity,
		OrderType:   o.OrderType,
		Price:       o.Price,
		PositionID:  o.PositionID,
		PortfolioID: o.PortfolioID,
		Status:      o.Status,
	}
}

func ConvertPortfolio(p dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		ID:              p.PortfolioID,
		UserID:          p.UserID,
		CashBalance:     p.CashBalance,
		TotalInvestment: p.TotalInvestment,
		CurrentValue:    p.CurrentValue,
		ProfitLoss:      p.ProfitLoss,
	}
}

func ConvertPosition(p dbModel.Position) model.Position {
	return model.Position{
		ID:                   p.PositionID,
		PortfolioID:          p.PortfolioID,
		Symbol:               p.Symbol,
		Quantity:             p.Quantity,
		BoughtAt:             p.BoughtAt,
		CurrentPrice:         p.CurrentPrice,
		InvestmentValue:      p.InvestmentValue,
		CurrentValue:         p.CurrentValue,
		ProfitLoss:           p.ProfitLoss,
		ProfitLossPercentage: p.ProfitLossPercentage,
		OrderID:              p.OrderID,
	}
}
