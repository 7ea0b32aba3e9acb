package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

const holdColumns = `h.id, h.screening_id, h.seat_id, h.session_id, h.username, h.status, h.expires_at, h.created_at, h.updated_at`

type PostgresHoldRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHoldRepository(db *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{
		db: db,
	}
}

// errAlreadyHeld rolls the acquire transaction back when the caller already owns the slot.
type errAlreadyHeld struct {
	hold *domain.SeatHold
}

func (e *errAlreadyHeld) Error() string {
	return "seat already held by caller"
}

func (p *PostgresHoldRepository) Acquire(
	ctx context.Context,
	req domain.AcquireRequest) (*domain.SeatHold, domain.AcquireOutcome, error) {

	hold := domain.SeatHold{
		ScreeningID: req.ScreeningID,
		SeatID:      req.SeatID,
		Owner:       req.Owner,
		Status:      domain.HoldStatusActive,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   req.Now,
		UpdatedAt:   req.Now,
	}

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO seat_holds (screening_id, seat_id, session_id, username, status, expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'ACTIVE', $5, $6, $6)
			RETURNING id
		`

		err := tx.QueryRow(
			ctx,
			query,
			req.ScreeningID,
			req.SeatID,
			req.Owner.SessionID,
			req.Owner.Username,
			req.ExpiresAt,
			req.Now).Scan(&hold.ID)
		if err != nil {
			return err
		}

		// The slot row is the lock. A live slot keeps its holder; an elapsed one is
		// handed over without touching the stale hold, which the sweeper expires later.
		query = `
			INSERT INTO seat_hold_keys (screening_id, seat_id, hold_id, expires_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (screening_id, seat_id) DO UPDATE
			SET hold_id = EXCLUDED.hold_id, expires_at = EXCLUDED.expires_at
			WHERE seat_hold_keys.expires_at <= $5
		`

		tag, err := tx.Exec(ctx, query, req.ScreeningID, req.SeatID, hold.ID, req.ExpiresAt, req.Now)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			current, err := p.currentSlotHolder(ctx, tx, req.ScreeningID, req.SeatID)
			if err != nil {
				return err
			}

			if current != nil && current.LiveAt(req.Now) && current.Owner.Matches(req.Owner) {
				return &errAlreadyHeld{hold: current}
			}

			return domain.ErrSeatNotAvailable
		}

		// Runs after the slot is taken so a booking committed while we waited is visible.
		query = `
			SELECT EXISTS (
				SELECT 1
				FROM booked_seats bs
				JOIN bookings b ON b.id = bs.booking_id
				WHERE bs.screening_id = $1 AND bs.seat_id = $2 AND b.status IN ('PENDING', 'CONFIRMED')
			)
		`

		var sold bool
		err = tx.QueryRow(ctx, query, req.ScreeningID, req.SeatID).Scan(&sold)
		if err != nil {
			return err
		}

		if sold {
			return domain.ErrSeatNotAvailable
		}

		return nil
	})

	if err != nil {
		var held *errAlreadyHeld
		if errors.As(err, &held) {
			return held.hold, domain.AcquireAlreadyHeld, nil
		}

		return nil, 0, err
	}

	return &hold, domain.AcquireGranted, nil
}

func (p *PostgresHoldRepository) currentSlotHolder(
	ctx context.Context,
	tx pgx.Tx,
	screeningID,
	seatID int) (*domain.SeatHold, error) {

	query := `
		SELECT ` + holdColumns + `
		FROM seat_hold_keys k
		JOIN seat_holds h ON h.id = k.hold_id
		WHERE k.screening_id = $1 AND k.seat_id = $2
	`

	hold, err := scanHold(tx.QueryRow(ctx, query, screeningID, seatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return hold, nil
}

func (p *PostgresHoldRepository) Release(
	ctx context.Context,
	screeningID,
	seatID int,
	owner domain.OwnerKey,
	now time.Time) (*domain.SeatHold, error) {

	var released *domain.SeatHold

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			SELECT ` + holdColumns + `
			FROM seat_hold_keys k
			JOIN seat_holds h ON h.id = k.hold_id
			WHERE k.screening_id = $1 AND k.seat_id = $2
			FOR UPDATE
		`

		hold, err := scanHold(tx.QueryRow(ctx, query, screeningID, seatID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrHoldNotFound
			}

			return err
		}

		if !hold.LiveAt(now) {
			return domain.ErrHoldNotFound
		}

		if !hold.Owner.Matches(owner) {
			return domain.ErrNotLockOwner
		}

		query = `
			UPDATE seat_holds
			SET status = 'RELEASED', updated_at = $2
			WHERE id = $1 AND status = 'ACTIVE'
		`

		tag, err := tx.Exec(ctx, query, hold.ID, now)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrHoldNotFound
		}

		_, err = tx.Exec(ctx, `DELETE FROM seat_hold_keys WHERE hold_id = $1`, hold.ID)
		if err != nil {
			return err
		}

		hold.Status = domain.HoldStatusReleased
		hold.UpdatedAt = now
		released = hold

		return nil
	})

	if err != nil {
		return nil, err
	}

	return released, nil
}

func (p *PostgresHoldRepository) ReleaseAll(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	now time.Time) ([]domain.SeatHold, error) {

	var released []domain.SeatHold

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE seat_holds h
			SET status = 'RELEASED', updated_at = $4
			WHERE h.screening_id = $1
				AND h.status = 'ACTIVE'
				AND h.expires_at > $4
				AND (h.session_id = $2 OR ($3 <> '' AND h.username = $3))
			RETURNING ` + holdColumns

		rows, err := tx.Query(ctx, query, screeningID, owner.SessionID, owner.Username, now)
		if err != nil {
			return err
		}

		released, err = collectHolds(rows)
		if err != nil {
			return err
		}

		if len(released) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `DELETE FROM seat_hold_keys WHERE hold_id = ANY($1)`, holdIDs(released))
		return err
	})

	if err != nil {
		return nil, err
	}

	return released, nil
}

func (p *PostgresHoldRepository) ActiveHolds(
	ctx context.Context,
	screeningID int,
	now time.Time) ([]domain.SeatHold, error) {

	query := `
		SELECT ` + holdColumns + `
		FROM seat_holds h
		WHERE h.screening_id = $1 AND h.status = 'ACTIVE' AND h.expires_at > $2
		ORDER BY h.seat_id
	`

	rows, err := p.db.Query(ctx, query, screeningID, now)
	if err != nil {
		return nil, translateError(err)
	}

	holds, err := collectHolds(rows)
	if err != nil {
		return nil, translateError(err)
	}

	return holds, nil
}

// ExpireElapsed flips up to limit elapsed ACTIVE holds to EXPIRED. Rows locked by
// an in-flight checkout or release are skipped and picked up by a later pass.
func (p *PostgresHoldRepository) ExpireElapsed(
	ctx context.Context,
	now time.Time,
	limit int) ([]domain.SeatHold, error) {

	var expired []domain.SeatHold

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE seat_holds h
			SET status = 'EXPIRED', updated_at = $1
			WHERE h.id IN (
				SELECT id
				FROM seat_holds
				WHERE status = 'ACTIVE' AND expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			AND h.status = 'ACTIVE'
			RETURNING ` + holdColumns

		rows, err := tx.Query(ctx, query, now, limit)
		if err != nil {
			return err
		}

		expired, err = collectHolds(rows)
		if err != nil {
			return err
		}

		if len(expired) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `DELETE FROM seat_hold_keys WHERE hold_id = ANY($1)`, holdIDs(expired))
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("expire elapsed holds: %w", err)
	}

	return expired, nil
}

func scanHold(row pgx.Row) (*domain.SeatHold, error) {
	var hold domain.SeatHold

	err := row.Scan(
		&hold.ID,
		&hold.ScreeningID,
		&hold.SeatID,
		&hold.Owner.SessionID,
		&hold.Owner.Username,
		&hold.Status,
		&hold.ExpiresAt,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &hold, nil
}

func collectHolds(rows pgx.Rows) ([]domain.SeatHold, error) {
	defer rows.Close()

	holds := make([]domain.SeatHold, 0)

	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}

		holds = append(holds, *hold)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}

func holdIDs(holds []domain.SeatHold) []int64 {
	ids := make([]int64, len(holds))
	for i, h := range holds {
		ids[i] = h.ID
	}

	return ids
}
