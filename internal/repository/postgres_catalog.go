package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

// PostgresCatalogRepository reads the catalog tables owned by the catalog service.
// The booking core never writes to them.
type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

func (p *PostgresCatalogRepository) GetScreening(ctx context.Context, screeningID int) (*domain.Screening, error) {
	query := `
		SELECT id, hall_id, title, starts_at, base_price, active
		FROM screenings
		WHERE id = $1
	`

	var screening domain.Screening
	var basePrice pgtype.Numeric

	err := p.db.QueryRow(ctx, query, screeningID).Scan(
		&screening.ID,
		&screening.HallID,
		&screening.Title,
		&screening.StartsAt,
		&basePrice,
		&screening.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, translateError(err)
	}

	screening.BasePrice = numericToDecimal(basePrice)

	return &screening, nil
}

func (p *PostgresCatalogRepository) GetHallLayout(ctx context.Context, hallID int) ([]domain.Seat, error) {
	query := `
		SELECT id, hall_id, seat_row, seat_number, seat_class
		FROM seats
		WHERE hall_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, hallID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(
			&seat.ID,
			&seat.HallID,
			&seat.Row,
			&seat.Number,
			&seat.Class,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresCatalogRepository) GetActiveTicketTypes(ctx context.Context) ([]domain.TicketType, error) {
	query := `
		SELECT id, code, name, price_modifier
		FROM ticket_types
		WHERE active
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	ticketTypes := make([]domain.TicketType, 0)

	for rows.Next() {
		var ticketType domain.TicketType
		var modifier pgtype.Numeric

		err = rows.Scan(&ticketType.ID, &ticketType.Code, &ticketType.Name, &modifier)
		if err != nil {
			return nil, err
		}

		ticketType.Modifier = numericToDecimal(modifier)
		ticketTypes = append(ticketTypes, ticketType)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ticketTypes, nil
}
