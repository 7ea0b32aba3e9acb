package seatmap

import (
	"context"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

type Holds interface {
	CurrentHolds(ctx context.Context, screeningID int) ([]domain.SeatHold, error)
}

type SoldSeats interface {
	SoldSeats(ctx context.Context, screeningID int) ([]domain.BookedSeat, error)
}

// Projector merges the hall layout, live holds and sold seats into one status per seat.
type Projector struct {
	catalog domain.CatalogRepository
	holds   Holds
	sold    SoldSeats
}

func NewProjector(catalog domain.CatalogRepository, holds Holds, sold SoldSeats) *Projector {
	return &Projector{
		catalog: catalog,
		holds:   holds,
		sold:    sold,
	}
}

// Project returns the seat map of the screening as seen by owner. A seat is SOLD when
// a holding booking owns it, otherwise BOOKED while a live hold exists, otherwise FREE.
// Seats held by owner are flagged SelectedByYou.
func (p *Projector) Project(ctx context.Context, screeningID int, owner domain.OwnerKey) (*domain.SeatMap, error) {
	screening, err := p.catalog.GetScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	layout, err := p.catalog.GetHallLayout(ctx, screening.HallID)
	if err != nil {
		return nil, err
	}

	// read holds before sold seats so a checkout committing in between never shows as FREE
	holds, err := p.holds.CurrentHolds(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	sold, err := p.sold.SoldSeats(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	soldSeats := make(map[int]bool, len(sold))
	for _, seat := range sold {
		soldSeats[seat.SeatID] = true
	}

	heldSeats := make(map[int]domain.SeatHold, len(holds))
	for _, hold := range holds {
		heldSeats[hold.SeatID] = hold
	}

	seatMap := &domain.SeatMap{
		ScreeningID: screening.ID,
		HallID:      screening.HallID,
		Title:       screening.Title,
		StartsAt:    screening.StartsAt,
		Seats:       make([]domain.SeatState, 0, len(layout)),
	}

	for _, seat := range layout {
		state := domain.SeatState{
			Seat:   seat,
			Status: domain.SeatStatusFree,
		}

		if soldSeats[seat.ID] {
			state.Status = domain.SeatStatusSold
		} else if hold, ok := heldSeats[seat.ID]; ok {
			state.Status = domain.SeatStatusBooked

			if !owner.IsZero() && hold.Owner.Matches(owner) {
				expiresAt := hold.ExpiresAt
				state.SelectedByYou = true
				state.HoldExpiresAt = &expiresAt
			}
		}

		seatMap.Seats = append(seatMap.Seats, state)
	}

	return seatMap, nil
}
