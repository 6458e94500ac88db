package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/converter/dbConverter"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/model/dbModel"
	"github.com/papertrade/papertrade/utils"
)

// InsertOrder persists a new order row and returns the generated order id.
// The id is generated here, never taken from the request.
func (r *Postgres) InsertOrder(ctx context.Context, order model.Order) (orderID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertOrder"
	query := `
		INSERT INTO orders(order_id, user_id, stock_symbol, quantity, order_type, price, position_id, portfolio_id, status)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING order_id
	`

	slog.Debug("InsertOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("order", order))
	defer func() {
		if err != nil {
			slog.Error("InsertOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertOrder completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("orderID", orderID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		order.UserID,
		order.StockSymbol,
		order.Quantity,
		order.OrderType,
		order.Price,
		order.PositionID,
		order.PortfolioID,
		order.Status,
	).Scan(&orderID)

	if err != nil {
		return "", err
	}

	return orderID, nil
}

func (r *Postgres) GetOrder(ctx context.Context, orderID string) (order model.Order, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOrder"
	query := `
		SELECT order_id, user_id, stock_symbol, quantity, order_type, price, position_id, portfolio_id, status
		FROM orders
		WHERE order_id = $1
	`

	slog.Debug("GetOrder start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("orderID", orderID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetOrder failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOrder completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbOrder := dbModel.Order{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, orderID).StructScan(&dbOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Order{}, repository.ErrNotFound
		}
		return model.Order{}, err
	}

	return dbConverter.ConvertOrder(dbOrder), nil
}

func (r *Postgres) GetOrdersByUserID(ctx context.Context, userID string) (orders []model.Order, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOrdersByUserID"
	query := `
		SELECT order_id, user_id, stock_symbol, quantity, order_type, price, position_id, portfolio_id, status
		FROM orders
		WHERE user_id = $1
		ORDER BY order_id
	`

	slog.Debug("GetOrdersByUserID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("GetOrdersByUserID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOrdersByUserID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var order dbModel.Order
		err = rows.StructScan(&order)
		if err != nil {
			return nil, err
		}
		orders = append(orders, dbConverter.ConvertOrder(order))
	}

	return orders, nil
}
