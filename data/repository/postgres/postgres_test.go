package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/papertrade/papertrade/config"
	"github.com/papertrade/papertrade/data/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyDriver answers every query with zero rows, so lookups come back as
// repository.ErrNotFound.
type emptyDriver struct{}

func (emptyDriver) Open(string) (driver.Conn, error) { return emptyConn{}, nil }

type emptyConn struct{}

func (emptyConn) Prepare(string) (driver.Stmt, error) { return emptyStmt{}, nil }
func (emptyConn) Close() error                        { return nil }
func (emptyConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

type emptyStmt struct{}

func (emptyStmt) Close() error                               { return nil }
func (emptyStmt) NumInput() int                              { return -1 }
func (emptyStmt) Exec([]driver.Value) (driver.Result, error) { return driver.RowsAffected(0), nil }
func (emptyStmt) Query([]driver.Value) (driver.Rows, error)  { return &emptyRows{}, nil }

type emptyRows struct{}

func (*emptyRows) Columns() []string         { return nil }
func (*emptyRows) Close() error              { return nil }
func (*emptyRows) Next([]driver.Value) error { return io.EOF }

var registerEmptyDriver sync.Once

func newEmptyRepo(t *testing.T) *Postgres {
	t.Helper()

	registerEmptyDriver.Do(func() { sql.Register("emptyrows", emptyDriver{}) })

	db, err := sql.Open("emptyrows", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgres(&config.Config{}, sqlx.NewDb(db, "emptyrows"))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	return buf
}

func TestGetStockMissIsNotLoggedAsFailure(t *testing.T) {
	repo := newEmptyRepo(t)
	logs := captureLogs(t)

	_, err := repo.GetStock(context.Background(), "NOPE")
	require.ErrorIs(t, err, repository.ErrNotFound)

	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "GetStock completed")
}

func TestGetOrderMissIsNotLoggedAsFailure(t *testing.T) {
	repo := newEmptyRepo(t)
	logs := captureLogs(t)

	_, err := repo.GetOrder(context.Background(), "missing-order")
	require.ErrorIs(t, err, repository.ErrNotFound)

	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "GetOrder completed")
}

func TestGetPortfolioMissIsNotLoggedAsFailure(t *testing.T) {
	repo := newEmptyRepo(t)
	logs := captureLogs(t)

	_, err := repo.GetPortfolioByUserID(context.Background(), "ghost")
	require.ErrorIs(t, err, repository.ErrNotFound)

	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
}
