package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

type PostgresBookingRepository struct {
	db          *pgxpool.Pool
	lockTimeout string
}

// NewPostgresBookingRepository returns a repository whose commit transactions give
// up waiting for hold row locks after lockTimeout.
func NewPostgresBookingRepository(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresBookingRepository {
	repo := &PostgresBookingRepository{
		db: db,
	}

	if lockTimeout > 0 {
		repo.lockTimeout = fmt.Sprintf("%dms", lockTimeout.Milliseconds())
	}

	return repo
}

func (p *PostgresBookingRepository) Commit(ctx context.Context, booking *domain.Booking, now time.Time) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		err := setLockTimeout(ctx, tx, p.lockTimeout)
		if err != nil {
			return err
		}

		seatIDs := make([]int, len(booking.Seats))
		for i, seat := range booking.Seats {
			seatIDs[i] = seat.SeatID
		}

		// Locking the hold rows blocks the sweeper and concurrent releases until
		// this transaction ends, so what is validated here is what gets released.
		query := `
			SELECT ` + holdColumns + `
			FROM seat_hold_keys k
			JOIN seat_holds h ON h.id = k.hold_id
			WHERE k.screening_id = $1 AND k.seat_id = ANY($2)
			FOR UPDATE
		`

		rows, err := tx.Query(ctx, query, booking.ScreeningID, seatIDs)
		if err != nil {
			return err
		}

		holds, err := collectHolds(rows)
		if err != nil {
			return err
		}

		holdBySeat := make(map[int]domain.SeatHold, len(holds))
		for _, h := range holds {
			holdBySeat[h.SeatID] = h
		}

		ids := make([]int64, 0, len(seatIDs))
		for _, seatID := range seatIDs {
			hold, ok := holdBySeat[seatID]
			if !ok || !hold.LiveAt(now) || !hold.Owner.Matches(booking.Owner) {
				return fmt.Errorf("%w: seat %d", domain.ErrCheckoutAborted, seatID)
			}

			ids = append(ids, hold.ID)
		}

		query = `
			INSERT INTO bookings (
				booking_number,
				session_id,
				username,
				screening_id,
				total_price,
				status,
				payment_method,
				payment_reference,
				contact_name,
				contact_email,
				contact_phone,
				created_at,
				updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
			RETURNING id
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.Number,
			booking.Owner.SessionID,
			booking.Owner.Username,
			booking.ScreeningID,
			decimalToNumeric(booking.TotalPrice),
			booking.Status,
			booking.PaymentMethod,
			booking.PaymentReference,
			booking.Contact.Name,
			booking.Contact.Email,
			booking.Contact.Phone,
			now).Scan(&booking.ID)
		if err != nil {
			return err
		}

		rowsToCopy := make([][]any, 0, len(booking.Seats))
		for i := range booking.Seats {
			seat := &booking.Seats[i]
			seat.BookingID = booking.ID
			seat.ScreeningID = booking.ScreeningID

			rowsToCopy = append(rowsToCopy, []any{
				seat.BookingID,
				seat.ScreeningID,
				seat.SeatID,
				seat.TicketTypeID,
				decimalToNumeric(seat.Price),
				string(seat.Status),
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booked_seats"},
			[]string{"booking_id", "screening_id", "seat_id", "ticket_type_id", "price", "status"},
			pgx.CopyFromRows(rowsToCopy),
		)
		if err != nil {
			return err
		}

		query = `
			UPDATE seat_holds
			SET status = 'RELEASED', updated_at = $2
			WHERE id = ANY($1) AND status = 'ACTIVE'
		`

		tag, err := tx.Exec(ctx, query, ids, now)
		if err != nil {
			return err
		}

		if tag.RowsAffected() != int64(len(ids)) {
			return fmt.Errorf("%w: hold changed during commit", domain.ErrCheckoutAborted)
		}

		_, err = tx.Exec(ctx, `DELETE FROM seat_hold_keys WHERE hold_id = ANY($1)`, ids)
		if err != nil {
			return err
		}

		booking.CreatedAt = now
		booking.UpdatedAt = now

		return nil
	})
}

func (p *PostgresBookingRepository) SoldSeats(ctx context.Context, screeningID int) ([]domain.BookedSeat, error) {
	query := `
		SELECT bs.booking_id, bs.screening_id, bs.seat_id, bs.ticket_type_id, bs.price, bs.status
		FROM booked_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.screening_id = $1 AND b.status IN ('PENDING', 'CONFIRMED')
	`

	rows, err := p.db.Query(ctx, query, screeningID)
	if err != nil {
		return nil, translateError(err)
	}

	seats, err := collectBookedSeats(rows)
	if err != nil {
		return nil, translateError(err)
	}

	return seats, nil
}

func (p *PostgresBookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	booking, err := scanBooking(p.db.QueryRow(ctx, bookingQuery, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, translateError(err)
	}

	booking.Seats, err = p.bookedSeats(ctx, p.db, booking.ID)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (p *PostgresBookingRepository) Cancel(
	ctx context.Context,
	number string,
	owner domain.OwnerKey,
	now time.Time) (*domain.Booking, error) {

	var cancelled *domain.Booking

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		booking, err := scanBooking(tx.QueryRow(ctx, bookingQuery+" FOR UPDATE", number))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrRecordNotFound
			}

			return err
		}

		// Someone else's booking number reads as unknown.
		if !booking.Owner.Matches(owner) {
			return domain.ErrRecordNotFound
		}

		if booking.Status != domain.BookingStatusPending {
			return domain.ErrBookingNotEditable
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET status = 'CANCELLED', updated_at = $2 WHERE id = $1`,
			booking.ID, now)
		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusCancelled
		booking.UpdatedAt = now

		booking.Seats, err = p.bookedSeats(ctx, tx, booking.ID)
		if err != nil {
			return err
		}

		cancelled = booking

		return nil
	})

	if err != nil {
		return nil, err
	}

	return cancelled, nil
}

func (p *PostgresBookingRepository) ListByOwner(
	ctx context.Context,
	owner domain.OwnerKey,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) OVER(),
			b.booking_number,
			b.screening_id,
			s.title,
			s.starts_at,
			(SELECT COUNT(*) FROM booked_seats bs WHERE bs.booking_id = b.id),
			b.total_price,
			b.status,
			b.created_at
		FROM bookings b
		JOIN screenings s ON s.id = b.screening_id
		WHERE b.session_id = $1 OR ($2 <> '' AND b.username = $2)
		ORDER BY %s %s, b.id DESC
		LIMIT $3 OFFSET $4
	`, pagination.SortColumn(), pagination.SortDirection())

	rows, err := p.db.Query(ctx, query, owner.SessionID, owner.Username, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, translateError(err)
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary
		var total pgtype.Numeric

		err := rows.Scan(
			&totalRecords,
			&summary.Number,
			&summary.ScreeningID,
			&summary.Title,
			&summary.StartsAt,
			&summary.SeatCount,
			&total,
			&summary.Status,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summary.TotalPrice = numericToDecimal(total)
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}

const bookingQuery = `
	SELECT
		id,
		booking_number,
		session_id,
		username,
		screening_id,
		total_price,
		status,
		payment_method,
		payment_reference,
		contact_name,
		contact_email,
		contact_phone,
		created_at,
		updated_at
	FROM bookings
	WHERE booking_number = $1
`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var total pgtype.Numeric

	err := row.Scan(
		&booking.ID,
		&booking.Number,
		&booking.Owner.SessionID,
		&booking.Owner.Username,
		&booking.ScreeningID,
		&total,
		&booking.Status,
		&booking.PaymentMethod,
		&booking.PaymentReference,
		&booking.Contact.Name,
		&booking.Contact.Email,
		&booking.Contact.Phone,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.TotalPrice = numericToDecimal(total)

	return &booking, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (p *PostgresBookingRepository) bookedSeats(ctx context.Context, q querier, bookingID int64) ([]domain.BookedSeat, error) {
	query := `
		SELECT booking_id, screening_id, seat_id, ticket_type_id, price, status
		FROM booked_seats
		WHERE booking_id = $1
		ORDER BY seat_id
	`

	rows, err := q.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}

	return collectBookedSeats(rows)
}

func collectBookedSeats(rows pgx.Rows) ([]domain.BookedSeat, error) {
	defer rows.Close()

	seats := make([]domain.BookedSeat, 0)

	for rows.Next() {
		var seat domain.BookedSeat
		var price pgtype.Numeric

		err := rows.Scan(
			&seat.BookingID,
			&seat.ScreeningID,
			&seat.SeatID,
			&seat.TicketTypeID,
			&price,
			&seat.Status,
		)
		if err != nil {
			return nil, err
		}

		seat.Price = numericToDecimal(price)
		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
