package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
)

// MemoryCatalog serves screenings, halls and ticket types from memory. It backs the
// memory store for local runs and the service tests.
type MemoryCatalog struct {
	mu          sync.RWMutex
	screenings  map[int]domain.Screening
	halls       map[int][]domain.Seat
	ticketTypes []domain.TicketType
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		screenings: make(map[int]domain.Screening),
		halls:      make(map[int][]domain.Seat),
	}
}

// NewDemoCatalog seeds one hall of rows x seatsPerRow seats, a screening starting a
// day after now at a base price of 10.00 and the ADULT, CHILD and STUDENT ticket types.
func NewDemoCatalog(now time.Time, rows, seatsPerRow int) *MemoryCatalog {
	c := NewMemoryCatalog()

	const hallID = 1

	seats := make([]domain.Seat, 0, rows*seatsPerRow)
	for row := 1; row <= rows; row++ {
		for number := 1; number <= seatsPerRow; number++ {
			class := "STANDARD"
			if row == rows {
				class = "VIP"
			}

			seats = append(seats, domain.Seat{
				ID:     (row-1)*seatsPerRow + number,
				HallID: hallID,
				Row:    row,
				Number: number,
				Class:  class,
			})
		}
	}

	c.AddHall(hallID, seats)
	c.AddScreening(domain.Screening{
		ID:        1,
		HallID:    hallID,
		Title:     "Opening Night",
		StartsAt:  now.Add(24 * time.Hour),
		BasePrice: decimal.RequireFromString("10.00"),
		Active:    true,
	})
	c.SetTicketTypes([]domain.TicketType{
		{ID: 1, Code: "ADULT", Name: "Adult", Modifier: decimal.RequireFromString("1.00")},
		{ID: 2, Code: "CHILD", Name: "Child", Modifier: decimal.RequireFromString("0.50")},
		{ID: 3, Code: "STUDENT", Name: "Student", Modifier: decimal.RequireFromString("0.80")},
	})

	return c
}

func (c *MemoryCatalog) AddHall(hallID int, seats []domain.Seat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	layout := append([]domain.Seat(nil), seats...)
	sort.Slice(layout, func(i, j int) bool {
		if layout[i].Row != layout[j].Row {
			return layout[i].Row < layout[j].Row
		}
		return layout[i].Number < layout[j].Number
	})

	c.halls[hallID] = layout
}

func (c *MemoryCatalog) AddScreening(screening domain.Screening) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.screenings[screening.ID] = screening
}

func (c *MemoryCatalog) SetTicketTypes(ticketTypes []domain.TicketType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticketTypes = append([]domain.TicketType(nil), ticketTypes...)
}

func (c *MemoryCatalog) GetScreening(ctx context.Context, screeningID int) (*domain.Screening, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	screening, ok := c.screenings[screeningID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &screening, nil
}

func (c *MemoryCatalog) GetHallLayout(ctx context.Context, hallID int) ([]domain.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seats, ok := c.halls[hallID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return append([]domain.Seat(nil), seats...), nil
}

func (c *MemoryCatalog) GetActiveTicketTypes(ctx context.Context) ([]domain.TicketType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]domain.TicketType(nil), c.ticketTypes...), nil
}
