package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polieventos/ticketing/internal/domain"
)

type txKey struct{}

// db is embedded by every repository. Statements run on the transaction
// carried by ctx when there is one and on the pool otherwise.
type db struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// withTx runs fn in a transaction. Nested calls join the outer transaction.
// When lockTimeout is positive, row lock waits inside the transaction are
// bounded by it and a timed-out wait surfaces as domain.ErrBusy.
func (d db) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapBusy(fmt.Errorf("begin tx: %w", err))
	}

	if d.lockTimeout > 0 {
		ms := strconv.FormatInt(d.lockTimeout.Milliseconds(), 10) + "ms"
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			_ = tx.Rollback(ctx)
			return mapBusy(fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return mapBusy(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapBusy(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func (d db) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return d.pool.Exec(ctx, sql, args...)
}

func (d db) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d db) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return d.pool.Query(ctx, sql, args...)
}

// mapBusy turns lock contention into domain.ErrBusy and leaves every other
// error untouched. Only the error itself is inspected: a business error
// returned just before the request deadline keeps its meaning.
func mapBusy(err error) error {
	if err == nil {
		return nil
	}
	if isLockNotAvailable(err) || isDeadlock(err) || isQueryCanceled(err) {
		return domain.ErrBusy
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrBusy
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isInvalidUUID(err error) bool {
	return pgCode(err) == "22P02"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isLockNotAvailable(err error) bool {
	return pgCode(err) == "55P03"
}

func isDeadlock(err error) bool {
	return pgCode(err) == "40P01"
}

// isQueryCanceled reports a statement cancelled by statement_timeout or by
// the client context.
func isQueryCanceled(err error) bool {
	return pgCode(err) == "57014"
}
