package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/converter/dbConverter"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/model/dbModel"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) GetPortfolioByUserID(ctx context.Context, userID string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfolioByUserID"
	query := `
		SELECT portfolio_id, user_id, cash_balance, total_investment, current_value, profit_loss
		FROM portfolios
		WHERE user_id = $1
	`

	slog.Debug("GetPortfolioByUserID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetPortfolioByUserID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolioByUserID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&dbPortfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, repository.ErrNotFound
		}
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

// InsertPortfolio creates an empty portfolio for userID. Returns
// repository.ErrAlreadyExists when the user already has one, so callers can
// re-read after losing a create race. ON CONFLICT keeps the race loss
// error-free inside a transaction.
func (r *Postgres) InsertPortfolio(ctx context.Context, userID string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPortfolio"
	query := `
		INSERT INTO portfolios(user_id, cash_balance, total_investment, current_value, profit_loss)
		VALUES($1, 0, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING portfolio_id, user_id, cash_balance, total_investment, current_value, profit_loss
	`

	slog.Debug("InsertPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			slog.Error("InsertPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&dbPortfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// conflict on user_id, nothing inserted
			return model.Portfolio{}, repository.ErrAlreadyExists
		}
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

// AddToCashBalance applies a deposit as a single arithmetic update, so
// concurrent deposits never lose each other.
func (r *Postgres) AddToCashBalance(ctx context.Context, userID string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AddToCashBalance"
	query := `UPDATE portfolios SET cash_balance = cash_balance + $1 WHERE user_id = $2`

	slog.Debug("AddToCashBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("AddToCashBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddToCashBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SubtractFromCashBalance withdraws amount only when the balance covers it.
// The balance check and the update are one statement, so concurrent
// withdrawals cannot drive the balance negative.
func (r *Postgres) SubtractFromCashBalance(ctx context.Context, userID string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SubtractFromCashBalance"
	query := `
		UPDATE portfolios
		SET cash_balance = cash_balance - $1
		WHERE user_id = $2
		AND cash_balance >= $1
	`

	slog.Debug("SubtractFromCashBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrInsufficientFunds) {
			slog.Error("SubtractFromCashBalance failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SubtractFromCashBalance completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, amount, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrInsufficientFunds
	}

	return nil
}

// InsertPosition persists a settled position. The unique constraint on
// order_id turns re-delivered order events into no-ops; created reports
// whether a row was actually written.
func (r *Postgres) InsertPosition(ctx context.Context, position model.Position) (created bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPosition"
	query := `
		INSERT INTO positions(portfolio_id, symbol, quantity, bought_at, current_price, investment_value, current_value, profit_loss, profit_loss_percentage, order_id)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id) DO NOTHING
	`

	slog.Debug("InsertPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("position", position))
	defer func() {
		if err != nil {
			slog.Error("InsertPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPosition completed", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("created", created))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		position.PortfolioID,
		position.Symbol,
		position.Quantity,
		position.BoughtAt,
		position.CurrentPrice,
		position.InvestmentValue,
		position.CurrentValue,
		position.ProfitLoss,
		position.ProfitLossPercentage,
		position.OrderID,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *Postgres) GetPositionsByPortfolioID(ctx context.Context, portfolioID int64) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPositionsByPortfolioID"
	query := `
		SELECT position_id, portfolio_id, symbol, quantity, bought_at, current_price, investment_value, current_value, profit_loss, profit_loss_percentage, order_id
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY position_id
	`

	slog.Debug("GetPositionsByPortfolioID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("GetPositionsByPortfolioID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositionsByPortfolioID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var position dbModel.Position
		err = rows.StructScan(&position)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(position))
	}

	return positions, nil
}

func (r *Postgres) GetPositionByOrderID(ctx context.Context, orderID string) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPositionByOrderID"
	query := `
		SELECT position_id, portfolio_id, symbol, quantity, bought_at, current_price, investment_value, current_value, profit_loss, profit_loss_percentage, order_id
		FROM positions
		WHERE order_id = $1
	`

	slog.Debug("GetPositionByOrderID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("orderID", orderID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetPositionByOrderID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPositionByOrderID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPosition := dbModel.Position{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, orderID).StructScan(&dbPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{}, repository.ErrNotFound
		}
		return model.Position{}, err
	}

	return dbConverter.ConvertPosition(dbPosition), nil
}

// DeletePortfolio removes the portfolio row; positions go with it through the
// cascade on portfolio_id.
func (r *Postgres) DeletePortfolio(ctx context.Context, userID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePortfolio"
	query := `DELETE FROM portfolios WHERE user_id = $1`

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("DeletePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	return nil
}
