package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
)

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return translateError(err)
	}

	err = fn(tx)
	if err == nil {
		return translateError(tx.Commit(ctx))
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
		return errors.Join(translateError(err), rollbackErr)
	}

	return translateError(err)
}

// translateError maps storage failures onto the domain taxonomy. A racing writer
// that trips a uniqueness constraint loses the seat; lock waits that exceed the
// configured budget surface as retryable timeouts.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ExclusionViolation:
			return fmt.Errorf("%w: %s", domain.ErrSeatNotAvailable, pgErr.ConstraintName)
		case pgerrcode.LockNotAvailable, pgerrcode.QueryCanceled,
			pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrStoreTimeout, pgErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrStoreTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}

	return err
}

func setLockTimeout(ctx context.Context, tx pgx.Tx, timeout string) error {
	if timeout == "" {
		return nil
	}

	_, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout)
	return err
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
