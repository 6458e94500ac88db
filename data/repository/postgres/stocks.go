package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/papertrade/papertrade/data/repository"
	"github.com/papertrade/papertrade/internal/converter/dbConverter"
	"github.com/papertrade/papertrade/internal/model"
	"github.com/papertrade/papertrade/internal/model/dbModel"
	"github.com/papertrade/papertrade/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertStock(ctx context.Context, stock model.Stock) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertStock"
	query := `INSERT INTO stocks(symbol, name, price) VALUES($1, $2, $3)`

	slog.Debug("InsertStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("stock", stock))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
			slog.Error("InsertStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, stock.Symbol, stock.Name, stock.Price)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) GetStock(ctx context.Context, symbol string) (stock model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStock"
	query := `SELECT symbol, name, price FROM stocks WHERE symbol = $1`

	slog.Debug("GetStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", symbol))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbStock := dbModel.Stock{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, symbol).StructScan(&dbStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stock{}, repository.ErrNotFound
		}
		return model.Stock{}, err
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) GetStocks(ctx context.Context) (stocks []model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStocks"
	query := `SELECT symbol, name, price FROM stocks ORDER BY symbol`

	slog.Debug("GetStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var stock dbModel.Stock
		err = rows.StructScan(&stock)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, dbConverter.ConvertStock(stock))
	}

	return stocks, nil
}

func (r *Postgres) UpdateStockPrice(ctx context.Context, symbol string, price decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateStockPrice"
	query := `UPDATE stocks SET price = $1 WHERE symbol = $2`

	slog.Debug("UpdateStockPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockPrice completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, price, symbol)
	if err != nil {
		return err
	}

	return nil
}
