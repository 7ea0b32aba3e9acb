package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

type slotKey struct {
	screeningID int
	seatID      int
}

type slot struct {
	holdID    int64
	expiresAt time.Time
}

// MemoryStore is a single-process backend for holds, bookings and carts. The mutex
// plays the part of the database's atomic conditional put; it gives no guarantee
// across processes and is meant for local runs and tests.
type MemoryStore struct {
	mu         sync.Mutex
	nextHoldID int64
	nextBookID int64
	holds      map[int64]*domain.SeatHold
	slots      map[slotKey]slot
	bookings   map[string]*domain.Booking
	carts      map[string]domain.Cart
	screenings domain.CatalogRepository
}

type MemoryStoreOption func(*MemoryStore)

// WithScreenings lets booking listings carry the screening title and start time.
func WithScreenings(catalog domain.CatalogRepository) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.screenings = catalog
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	m := &MemoryStore{
		holds:    make(map[int64]*domain.SeatHold),
		slots:    make(map[slotKey]slot),
		bookings: make(map[string]*domain.Booking),
		carts:    make(map[string]domain.Cart),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) Acquire(
	ctx context.Context,
	req domain.AcquireRequest) (*domain.SeatHold, domain.AcquireOutcome, error) {

	if err := ctx.Err(); err != nil {
		return nil, 0, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey{req.ScreeningID, req.SeatID}

	if current, ok := m.slots[key]; ok && req.Now.Before(current.expiresAt) {
		holder := m.holds[current.holdID]
		if holder.LiveAt(req.Now) && holder.Owner.Matches(req.Owner) {
			held := *holder
			return &held, domain.AcquireAlreadyHeld, nil
		}

		return nil, 0, domain.ErrSeatNotAvailable
	}

	if m.soldLocked(req.ScreeningID, req.SeatID) {
		return nil, 0, domain.ErrSeatNotAvailable
	}

	m.nextHoldID++
	hold := &domain.SeatHold{
		ID:          m.nextHoldID,
		ScreeningID: req.ScreeningID,
		SeatID:      req.SeatID,
		Owner:       req.Owner,
		Status:      domain.HoldStatusActive,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   req.Now,
		UpdatedAt:   req.Now,
	}

	m.holds[hold.ID] = hold
	m.slots[key] = slot{holdID: hold.ID, expiresAt: hold.ExpiresAt}

	granted := *hold
	return &granted, domain.AcquireGranted, nil
}

func (m *MemoryStore) Release(
	ctx context.Context,
	screeningID,
	seatID int,
	owner domain.OwnerKey,
	now time.Time) (*domain.SeatHold, error) {

	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey{screeningID, seatID}

	current, ok := m.slots[key]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}

	hold := m.holds[current.holdID]
	if !hold.LiveAt(now) {
		return nil, domain.ErrHoldNotFound
	}

	if !hold.Owner.Matches(owner) {
		return nil, domain.ErrNotLockOwner
	}

	hold.Status = domain.HoldStatusReleased
	hold.UpdatedAt = now
	delete(m.slots, key)

	released := *hold
	return &released, nil
}

func (m *MemoryStore) ReleaseAll(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	now time.Time) ([]domain.SeatHold, error) {

	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	released := make([]domain.SeatHold, 0)

	for key, current := range m.slots {
		if key.screeningID != screeningID {
			continue
		}

		hold := m.holds[current.holdID]
		if !hold.LiveAt(now) || !hold.Owner.Matches(owner) {
			continue
		}

		hold.Status = domain.HoldStatusReleased
		hold.UpdatedAt = now
		delete(m.slots, key)

		released = append(released, *hold)
	}

	sortHolds(released)

	return released, nil
}

func (m *MemoryStore) ActiveHolds(ctx context.Context, screeningID int, now time.Time) ([]domain.SeatHold, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holds := make([]domain.SeatHold, 0)

	for _, hold := range m.holds {
		if hold.ScreeningID == screeningID && hold.LiveAt(now) {
			holds = append(holds, *hold)
		}
	}

	sortHolds(holds)

	return holds, nil
}

func (m *MemoryStore) ExpireElapsed(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]*domain.SeatHold, 0)
	for _, hold := range m.holds {
		if hold.Status == domain.HoldStatusActive && !now.Before(hold.ExpiresAt) {
			candidates = append(candidates, hold)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	expired := make([]domain.SeatHold, 0, len(candidates))

	for _, hold := range candidates {
		hold.Status = domain.HoldStatusExpired
		hold.UpdatedAt = now

		key := slotKey{hold.ScreeningID, hold.SeatID}
		if current, ok := m.slots[key]; ok && current.holdID == hold.ID {
			delete(m.slots, key)
		}

		expired = append(expired, *hold)
	}

	return expired, nil
}

// Hold returns a copy of any hold, including released and expired ones.
func (m *MemoryStore) Hold(id int64) (domain.SeatHold, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[id]
	if !ok {
		return domain.SeatHold{}, false
	}

	return *hold, true
}

func (m *MemoryStore) Commit(ctx context.Context, booking *domain.Booking, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holds := make([]*domain.SeatHold, 0, len(booking.Seats))

	for _, seat := range booking.Seats {
		current, ok := m.slots[slotKey{booking.ScreeningID, seat.SeatID}]
		if !ok {
			return domain.ErrCheckoutAborted
		}

		hold := m.holds[current.holdID]
		if !hold.LiveAt(now) || !hold.Owner.Matches(booking.Owner) {
			return domain.ErrCheckoutAborted
		}

		holds = append(holds, hold)
	}

	if _, exists := m.bookings[booking.Number]; exists {
		return domain.ErrSeatNotAvailable
	}

	m.nextBookID++
	booking.ID = m.nextBookID
	booking.CreatedAt = now
	booking.UpdatedAt = now

	for i := range booking.Seats {
		booking.Seats[i].BookingID = booking.ID
		booking.Seats[i].ScreeningID = booking.ScreeningID
	}

	for _, hold := range holds {
		hold.Status = domain.HoldStatusReleased
		hold.UpdatedAt = now
		delete(m.slots, slotKey{hold.ScreeningID, hold.SeatID})
	}

	stored := *booking
	stored.Seats = append([]domain.BookedSeat(nil), booking.Seats...)
	m.bookings[booking.Number] = &stored

	return nil
}

func (m *MemoryStore) SoldSeats(ctx context.Context, screeningID int) ([]domain.BookedSeat, error) {
	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seats := make([]domain.BookedSeat, 0)

	for _, booking := range m.bookings {
		if booking.ScreeningID != screeningID || !booking.Status.Holding() {
			continue
		}

		seats = append(seats, booking.Seats...)
	}

	return seats, nil
}

func (m *MemoryStore) soldLocked(screeningID, seatID int) bool {
	for _, booking := range m.bookings {
		if booking.ScreeningID != screeningID || !booking.Status.Holding() {
			continue
		}

		for _, seat := range booking.Seats {
			if seat.SeatID == seatID {
				return true
			}
		}
	}

	return false
}

func (m *MemoryStore) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[number]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	found := *booking
	found.Seats = append([]domain.BookedSeat(nil), booking.Seats...)

	return &found, nil
}

func (m *MemoryStore) Cancel(
	ctx context.Context,
	number string,
	owner domain.OwnerKey,
	now time.Time) (*domain.Booking, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[number]
	if !ok || !booking.Owner.Matches(owner) {
		return nil, domain.ErrRecordNotFound
	}

	if booking.Status != domain.BookingStatusPending {
		return nil, domain.ErrBookingNotEditable
	}

	booking.Status = domain.BookingStatusCancelled
	booking.UpdatedAt = now

	cancelled := *booking
	return &cancelled, nil
}

func (m *MemoryStore) ListByOwner(
	ctx context.Context,
	owner domain.OwnerKey,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	type listed struct {
		id      int64
		summary domain.BookingSummary
	}

	screenings := make(map[int]*domain.Screening)
	owned := make([]listed, 0)

	for _, booking := range m.bookings {
		if !booking.Owner.Matches(owner) {
			continue
		}

		summary := domain.BookingSummary{
			Number:      booking.Number,
			ScreeningID: booking.ScreeningID,
			SeatCount:   len(booking.Seats),
			TotalPrice:  booking.TotalPrice,
			Status:      booking.Status,
			CreatedAt:   booking.CreatedAt,
		}

		screening, err := m.screening(ctx, screenings, booking.ScreeningID)
		if err != nil {
			return nil, nil, err
		}
		if screening != nil {
			summary.Title = screening.Title
			summary.StartsAt = screening.StartsAt
		}

		owned = append(owned, listed{id: booking.ID, summary: summary})
	}

	var compare func(a, b domain.BookingSummary) int
	switch pagination.SortColumn() {
	case "s.starts_at":
		compare = func(a, b domain.BookingSummary) int { return a.StartsAt.Compare(b.StartsAt) }
	case "b.total_price":
		compare = func(a, b domain.BookingSummary) int { return a.TotalPrice.Cmp(b.TotalPrice) }
	default:
		compare = func(a, b domain.BookingSummary) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}

	descending := pagination.SortDirection() == "DESC"

	slices.SortFunc(owned, func(a, b listed) int {
		c := compare(a.summary, b.summary)
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}

		return cmp.Compare(b.id, a.id)
	})

	total := len(owned)
	start := min(pagination.Offset(), total)
	end := min(start+pagination.Limit(), total)

	summaries := make([]domain.BookingSummary, 0, end-start)
	for _, booking := range owned[start:end] {
		summaries = append(summaries, booking.summary)
	}

	return summaries, domain.NewMetadata(total, pagination.Page, pagination.PageSize), nil
}

// screening resolves a screening through the optional catalog, memoising lookups
// for one listing. Unknown screenings and a missing catalog yield nil.
func (m *MemoryStore) screening(
	ctx context.Context,
	seen map[int]*domain.Screening,
	screeningID int) (*domain.Screening, error) {

	if m.screenings == nil {
		return nil, nil
	}

	if screening, ok := seen[screeningID]; ok {
		return screening, nil
	}

	screening, err := m.screenings.GetScreening(ctx, screeningID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err
	}

	seen[screeningID] = screening

	return screening, nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string, screeningID int) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[memoryCartKey(sessionID, screeningID)]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	cart.Items = append([]domain.CartItem(nil), cart.Items...)

	return &cart, nil
}

// Update runs fn while holding the store lock, so updates of one cart never interleave.
// fn must not call back into the store.
func (m *MemoryStore) Update(
	ctx context.Context,
	sessionID string,
	screeningID int,
	fn func(cart *domain.Cart) error) (*domain.Cart, error) {

	if err := ctx.Err(); err != nil {
		return nil, translateError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryCartKey(sessionID, screeningID)

	cart, ok := m.carts[key]
	if !ok {
		cart = *domain.NewCart(sessionID, screeningID, time.Time{})
	}
	cart.Items = append(make([]domain.CartItem, 0, len(cart.Items)), cart.Items...)

	err := fn(&cart)
	if err != nil {
		return nil, err
	}

	stored := cart
	stored.Items = make([]domain.CartItem, len(cart.Items))
	for i, item := range cart.Items {
		stored.Items[i] = domain.CartItem{
			SeatID:       item.SeatID,
			TicketTypeID: item.TicketTypeID,
			AddedAt:      item.AddedAt,
		}
	}

	m.carts[key] = stored

	return &cart, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string, screeningID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, memoryCartKey(sessionID, screeningID))

	return nil
}

func memoryCartKey(sessionID string, screeningID int) string {
	return cartKey(sessionID, screeningID)
}

func sortHolds(holds []domain.SeatHold) {
	sort.Slice(holds, func(i, j int) bool {
		return holds[i].SeatID < holds[j].SeatID
	})
}
