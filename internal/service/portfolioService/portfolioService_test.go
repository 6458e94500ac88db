package portfolioService

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	portfolios map[string]model.Portfolio
	positions  []model.Position
	nextID     int64

	inserts  int
	deposits []decimal.Decimal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{portfolios: make(map[string]model.Portfolio)}
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (r *fakeRepo) GetPortfolioByUserID(_ context.Context, userID string) (model.Portfolio, error) {
	portfolio, ok := r.portfolios[userID]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	return portfolio, nil
}

func (r *fakeRepo) InsertPortfolio(_ context.Context, userID string) (model.Portfolio, error) {
	if _, ok := r.portfolios[userID]; ok {
		return model.Portfolio{}, repository.ErrAlreadyExists
	}
	r.nextID++
	portfolio := model.Portfolio{ID: r.nextID, UserID: userID}
	r.portfolios[userID] = portfolio
	return portfolio, nil
}

func (r *fakeRepo) AddToCashBalance(_ context.Context, userID string, amount decimal.Decimal) error {
	portfolio, ok := r.portfolios[userID]
	if !ok {
		return repository.ErrNotFound
	}
	portfolio.CashBalance = portfolio.CashBalance.Add(amount)
	r.portfolios[userID] = portfolio
	r.deposits = append(r.deposits, amount)
	return nil
}

func (r *fakeRepo) SubtractFromCashBalance(_ context.Context, userID string, amount decimal.Decimal) error {
	portfolio, ok := r.portfolios[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if portfolio.CashBalance.LessThan(amount) {
		return repository.ErrInsufficientFunds
	}
	portfolio.CashBalance = portfolio.CashBalance.Sub(amount)
	r.portfolios[userID] = portfolio
	return nil
}

func (r *fakeRepo) InsertPosition(_ context.Context, position model.Position) (bool, error) {
	r.inserts++
	for _, p := range r.positions {
		if p.OrderID == position.OrderID {
			return false, nil
		}
	}
	r.positions = append(r.positions, position)
	return true, nil
}

func (r *fakeRepo) GetPositionsByPortfolioID(_ context.Context, portfolioID int64) ([]model.Position, error) {
	var res []model.Position
	for _, p := range r.positions {
		if p.PortfolioID == portfolioID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetPositionByOrderID(_ context.Context, orderID string) (model.Position, error) {
	for _, p := range r.positions {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return model.Position{}, repository.ErrNotFound
}

func (r *fakeRepo) DeletePortfolio(_ context.Context, userID string) error {
	portfolio, ok := r.portfolios[userID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.portfolios, userID)
	kept := r.positions[:0]
	for _, p := range r.positions {
		if p.PortfolioID != portfolio.ID {
			kept = append(kept, p)
		}
	}
	r.positions = kept
	return nil
}

func newService(repo *fakeRepo) *PortfolioService {
	return New(&config.Config{}, repo)
}

func orderEventPayload(t *testing.T, event model.OrderEvent) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func TestHandleOrderEventSettlesPosition(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	payload := orderEventPayload(t, model.OrderEvent{
		ID:          "order-1",
		UserID:      "user-1",
		StockSymbol: "ABC",
		Quantity:    10,
		OrderType:   model.OrderTypeBuy,
		Price:       decimal.RequireFromString("1050.00"),
		Status:      model.OrderStatusOpen,
	})

	require.NoError(t, srv.HandleOrderEvent(context.Background(), payload))

	require.Len(t, repo.positions, 1)
	position := repo.positions[0]
	assert.Equal(t, "ABC", position.Symbol)
	assert.Equal(t, 10, position.Quantity)
	assert.True(t, position.BoughtAt.Equal(decimal.RequireFromString("105")), "got %s", position.BoughtAt)
	assert.True(t, position.CurrentPrice.Equal(decimal.RequireFromString("105")))
	assert.True(t, position.InvestmentValue.Equal(decimal.RequireFromString("1050")), "got %s", position.InvestmentValue)
	assert.True(t, position.CurrentValue.Equal(decimal.RequireFromString("1050")))
	assert.True(t, position.ProfitLoss.IsZero())
	assert.True(t, position.ProfitLossPercentage.IsZero())
	assert.Equal(t, "order-1", position.OrderID)

	// the portfolio was created lazily for the event's user
	portfolio, ok := repo.portfolios["user-1"]
	require.True(t, ok)
	assert.Equal(t, portfolio.ID, position.PortfolioID)
}

func TestHandleOrderEventDuplicateIsNoop(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	payload := orderEventPayload(t, model.OrderEvent{
		ID:          "order-1",
		UserID:      "user-1",
		StockSymbol: "ABC",
		Quantity:    5,
		OrderType:   model.OrderTypeBuy,
		Price:       decimal.RequireFromString("500"),
		Status:      model.OrderStatusOpen,
	})

	require.NoError(t, srv.HandleOrderEvent(context.Background(), payload))
	require.NoError(t, srv.HandleOrderEvent(context.Background(), payload))

	assert.Len(t, repo.positions, 1)
	assert.Equal(t, 2, repo.inserts)
}

func TestHandleOrderEventDropsMalformedPayload(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	// broken json, missing id, missing user, non-positive quantity
	payloads := [][]byte{
		[]byte(`not json`),
		orderEventPayload(t, model.OrderEvent{UserID: "user-1", StockSymbol: "ABC", Quantity: 1}),
		orderEventPayload(t, model.OrderEvent{ID: "order-1", StockSymbol: "ABC", Quantity: 1}),
		orderEventPayload(t, model.OrderEvent{ID: "order-1", UserID: "user-1", StockSymbol: "ABC", Quantity: 0}),
	}

	for _, payload := range payloads {
		assert.NoError(t, srv.HandleOrderEvent(context.Background(), payload))
	}

	assert.Empty(t, repo.positions)
	assert.Empty(t, repo.portfolios)
}

func TestGetPortfolioAggregatesFromPositions(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	portfolio, err := repo.InsertPortfolio(context.Background(), "user-1")
	require.NoError(t, err)

	repo.positions = []model.Position{
		{
			PortfolioID:     portfolio.ID,
			Symbol:          "AAA",
			Quantity:        10,
			InvestmentValue: decimal.RequireFromString("600"),
			CurrentValue:    decimal.RequireFromString("700"),
		},
		{
			PortfolioID:     portfolio.ID,
			Symbol:          "BBB",
			Quantity:        4,
			InvestmentValue: decimal.RequireFromString("400"),
			CurrentValue:    decimal.RequireFromString("400"),
		},
	}

	res, err := srv.GetPortfolio(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, res.TotalInvestment.Equal(decimal.RequireFromString("1000")), "got %s", res.TotalInvestment)
	assert.True(t, res.CurrentValue.Equal(decimal.RequireFromString("1100")))
	assert.True(t, res.ProfitLoss.Equal(decimal.RequireFromString("100")))
	assert.True(t, res.ProfitLossPercentage.Equal(decimal.RequireFromString("10")), "got %s", res.ProfitLossPercentage)
	assert.Len(t, res.Positions, 2)
}

func TestGetPortfolioFreshUserIsZeroValued(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	res, err := srv.GetPortfolio(context.Background(), "new-user")
	require.NoError(t, err)

	assert.Equal(t, "new-user", res.UserID)
	assert.True(t, res.CashBalance.IsZero())
	assert.True(t, res.TotalInvestment.IsZero())
	assert.True(t, res.CurrentValue.IsZero())
	assert.True(t, res.ProfitLoss.IsZero())
	assert.True(t, res.ProfitLossPercentage.IsZero())
	assert.Empty(t, res.Positions)

	// the read itself created the portfolio
	_, ok := repo.portfolios["new-user"]
	assert.True(t, ok)
}

func TestDepositFunds(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	err := srv.DepositFunds(context.Background(), "user-1", decimal.RequireFromString("250.50"))
	require.NoError(t, err)

	portfolio := repo.portfolios["user-1"]
	assert.True(t, portfolio.CashBalance.Equal(decimal.RequireFromString("250.50")))
}

func TestDepositFundsRejectsNonPositiveAmount(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	assert.ErrorIs(t, srv.DepositFunds(context.Background(), "user-1", decimal.Zero), service.ErrInvalidAmount)
	assert.ErrorIs(t, srv.DepositFunds(context.Background(), "user-1", decimal.RequireFromString("-5")), service.ErrInvalidAmount)
	assert.Empty(t, repo.portfolios)
}

func TestWithdrawFunds(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	require.NoError(t, srv.DepositFunds(context.Background(), "user-1", decimal.RequireFromString("100")))
	require.NoError(t, srv.WithdrawFunds(context.Background(), "user-1", decimal.RequireFromString("40")))

	portfolio := repo.portfolios["user-1"]
	assert.True(t, portfolio.CashBalance.Equal(decimal.RequireFromString("60")), "got %s", portfolio.CashBalance)
}

func TestWithdrawFundsInsufficientBalance(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	require.NoError(t, srv.DepositFunds(context.Background(), "user-1", decimal.RequireFromString("100")))

	err := srv.WithdrawFunds(context.Background(), "user-1", decimal.RequireFromString("100.01"))
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	// balance untouched after the rejected withdrawal
	portfolio := repo.portfolios["user-1"]
	assert.True(t, portfolio.CashBalance.Equal(decimal.RequireFromString("100")))
}

func TestWithdrawFundsUnknownUser(t *testing.T) {
	srv := newService(newFakeRepo())

	err := srv.WithdrawFunds(context.Background(), "ghost", decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestWithdrawFundsRejectsNonPositiveAmount(t *testing.T) {
	srv := newService(newFakeRepo())

	assert.ErrorIs(t, srv.WithdrawFunds(context.Background(), "user-1", decimal.Zero), service.ErrInvalidAmount)
}

func TestGetPositionNotFound(t *testing.T) {
	srv := newService(newFakeRepo())

	_, err := srv.GetPosition(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeletePortfolioCascadesToPositions(t *testing.T) {
	repo := newFakeRepo()
	srv := newService(repo)

	payload := orderEventPayload(t, model.OrderEvent{
		ID:          "order-1",
		UserID:      "user-1",
		StockSymbol: "ABC",
		Quantity:    1,
		OrderType:   model.OrderTypeBuy,
		Price:       decimal.RequireFromString("10"),
		Status:      model.OrderStatusOpen,
	})
	require.NoError(t, srv.HandleOrderEvent(context.Background(), payload))

	require.NoError(t, srv.DeletePortfolio(context.Background(), "user-1"))

	assert.Empty(t, repo.portfolios)
	assert.Empty(t, repo.positions)
}
