package portfolioService

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/service"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetPortfolioByUserID(ctx context.Context, userID string) (model.Portfolio, error)
	InsertPortfolio(ctx context.Context, userID string) (model.Portfolio, error)
	AddToCashBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	SubtractFromCashBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	InsertPosition(ctx context.Context, position model.Position) (created bool, err error)
	GetPositionsByPortfolioID(ctx context.Context, portfolioID int64) ([]model.Position, error)
	GetPositionByOrderID(ctx context.Context, orderID string) (model.Position, error)
	DeletePortfolio(ctx context.Context, userID string) error
}

// PortfolioService is the position ledger: it settles order events into
// positions and owns portfolio reads and funding operations.
type PortfolioService struct {
	cfg  *config.Config
	repo Repository
}

func New(cfg *config.Config, repo Repository) *PortfolioService {
	return &PortfolioService{cfg: cfg, repo: repo}
}

// ensurePortfolio is the single get-or-create entry point for portfolios.
// A portfolio is born lazily on the first reference to its user.
func (s *PortfolioService) ensurePortfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	portfolio, err := s.repo.GetPortfolioByUserID(ctx, userID)
	if err == nil {
		return portfolio, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Portfolio{}, err
	}

	portfolio, err = s.repo.InsertPortfolio(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// lost the create race, the row is there now
			return s.repo.GetPortfolioByUserID(ctx, userID)
		}
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

// HandleOrderEvent settles one order event into a position. Malformed
// payloads are logged and dropped. Re-delivered events are no-ops thanks to
// the unique order id on positions.
func (s *PortfolioService) HandleOrderEvent(ctx context.Context, payload []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.HandleOrderEvent"

	var event model.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ID == "" || event.UserID == "" || event.Quantity <= 0 {
		slog.Error(
			"malformed order event, dropping",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("payload", string(payload)),
		)
		return nil
	}

	// event.Price is the order total; positions record the per-share price
	quantity := decimal.NewFromInt(int64(event.Quantity))
	unitPrice := event.Price.DivRound(quantity, 8)

	var created bool

	// portfolio creation and settlement commit together
	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		portfolio, err := s.ensurePortfolio(ctx, event.UserID)
		if err != nil {
			slog.Error("can't ensure portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		position := model.Position{
			PortfolioID:          portfolio.ID,
			Symbol:               event.StockSymbol,
			Quantity:             event.Quantity,
			BoughtAt:             unitPrice,
			CurrentPrice:         unitPrice,
			InvestmentValue:      unitPrice.Mul(quantity),
			CurrentValue:         unitPrice.Mul(quantity),
			ProfitLoss:           decimal.Zero,
			ProfitLossPercentage: decimal.Zero,
			OrderID:              event.ID,
		}

		created, err = s.repo.InsertPosition(ctx, position)
		if err != nil {
			slog.Error("got error from repo.InsertPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil {
		return err
	}

	if !created {
		slog.Warn(
			"duplicate order event, position already settled",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("orderID", event.ID),
		)
		return nil
	}

	slog.Info("order event settled", slog.String("rqID", rqID), slog.String("op", op), slog.String("orderID", event.ID))

	return nil
}

// GetPortfolio returns the portfolio with aggregates recomputed from its
// positions. A user with no prior activity gets a fresh zero-valued
// portfolio.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (model.PortfolioResponse, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolio, err := s.ensurePortfolio(ctx, userID)
	if err != nil {
		slog.Error("can't ensure portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioResponse{}, err
	}

	positions, err := s.repo.GetPositionsByPortfolioID(ctx, portfolio.ID)
	if err != nil {
		slog.Error("got error from repo.GetPositionsByPortfolioID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioResponse{}, err
	}

	totalInvestment := decimal.Zero
	currentValue := decimal.Zero
	positionInfos := make([]model.PositionInfo, 0, len(positions))

	for _, position := range positions {
		totalInvestment = totalInvestment.Add(position.InvestmentValue)
		currentValue = currentValue.Add(position.CurrentValue)
		positionInfos = append(positionInfos, model.PositionInfo{
			Symbol:               position.Symbol,
			Quantity:             position.Quantity,
			CurrentPrice:         position.CurrentPrice,
			InvestmentValue:      position.InvestmentValue,
			CurrentValue:         position.CurrentValue,
			ProfitLoss:           position.ProfitLoss,
			ProfitLossPercentage: position.ProfitLossPercentage,
		})
	}

	profitLoss := currentValue.Sub(totalInvestment)

	profitLossPercentage := decimal.Zero
	if totalInvestment.IsPositive() {
		profitLossPercentage = profitLoss.DivRound(totalInvestment, 4).Mul(decimal.NewFromInt(100))
	}

	return model.PortfolioResponse{
		UserID:               portfolio.UserID,
		CashBalance:          portfolio.CashBalance,
		TotalInvestment:      totalInvestment,
		CurrentValue:         currentValue,
		ProfitLoss:           profitLoss,
		ProfitLossPercentage: profitLossPercentage,
		Positions:            positionInfos,
	}, nil
}

func (s *PortfolioService) DepositFunds(ctx context.Context, userID string, amount decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DepositFunds"

	slog.Debug("DepositFunds start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("amount", amount.String()))
	defer func() {
		slog.Debug("DepositFunds finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amount.IsPositive() {
		return service.ErrInvalidAmount
	}

	if _, err := s.ensurePortfolio(ctx, userID); err != nil {
		slog.Error("can't ensure portfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err := s.repo.AddToCashBalance(ctx, userID, amount)
	if err != nil {
		slog.Error("got error from repo.AddToCashBalance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) WithdrawFunds(ctx context.Context, userID string, amount decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WithdrawFunds"

	slog.Debug("WithdrawFunds start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("amount", amount.String()))
	defer func() {
		slog.Debug("WithdrawFunds finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amount.IsPositive() {
		return service.ErrInvalidAmount
	}

	_, err := s.repo.GetPortfolioByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetPortfolioByUserID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.SubtractFromCashBalance(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return service.ErrInsufficientFunds
		}
		slog.Error("got error from repo.SubtractFromCashBalance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) GetPosition(ctx context.Context, orderID string) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPosition"

	slog.Debug("GetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("orderID", orderID))

	position, err := s.repo.GetPositionByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPositionByOrderID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	return position, nil
}

// DeletePortfolio removes the portfolio and, through the storage cascade,
// every position it owns.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, userID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeletePortfolio"

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("DeletePortfolio finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	err := s.repo.DeletePortfolio(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.DeletePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
