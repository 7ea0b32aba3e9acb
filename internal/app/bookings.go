package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

func (app *Application) GetBooking(w http.ResponseWriter, r *http.Request) {
	number, ok := readBookingNumber(r)
	if !ok {
		app.notFoundResponse(w, r)
		return
	}

	booking, err := app.bookings.GetByNumber(r.Context(), number)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	if !booking.Owner.Matches(app.ownerKey(r)) {
		app.contextGetLogger(r).Warn("booking requested by a different owner", "booking_number", number)
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiBooking(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelBooking(w http.ResponseWriter, r *http.Request) {
	number, ok := readBookingNumber(r)
	if !ok {
		app.notFoundResponse(w, r)
		return
	}

	booking, err := app.bookings.Cancel(r.Context(), number, app.ownerKey(r), app.now())
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.contextGetLogger(r).Info("booking cancelled", "booking_number", number)

	err = app.writeJSON(w, http.StatusOK, toApiBooking(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListBookings(w http.ResponseWriter, r *http.Request) {
	var (
		params api.ListBookingsParams
		err    error
	)

	params.Page, err = readIntQuery(r, "page")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params.PageSize, err = readIntQuery(r, "pageSize")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if sort := r.URL.Query().Get("sort"); sort != "" {
		params.Sort = &sort
	}

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	bookings, metadata, err := app.bookings.ListByOwner(r.Context(), app.ownerKey(r), toPagination(params))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := api.BookingListResponse{
		Bookings: toBookingSummaries(bookings),
		Metadata: toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	ticketTypes, err := app.catalog.GetActiveTicketTypes(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.TicketTypesResponse{
		TicketTypes: make([]api.TicketType, len(ticketTypes)),
	}

	for i, t := range ticketTypes {
		resp.TicketTypes[i] = api.TicketType{
			Id:       t.ID,
			Code:     t.Code,
			Name:     t.Name,
			Modifier: t.Modifier,
		}
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func readBookingNumber(r *http.Request) (string, bool) {
	number, err := uuid.Parse(chi.URLParam(r, "bookingNumber"))
	if err != nil {
		return "", false
	}

	return number.String(), true
}

func toApiBooking(booking *domain.Booking) api.BookingResponse {
	resp := api.BookingResponse{
		BookingNumber:    booking.Number,
		ScreeningId:      booking.ScreeningID,
		Status:           string(booking.Status),
		PaymentMethod:    api.PaymentMethod(booking.PaymentMethod),
		PaymentReference: booking.PaymentReference,
		TotalPrice:       booking.TotalPrice,
		Seats:            make([]api.BookedSeat, len(booking.Seats)),
		ContactName:      booking.Contact.Name,
		ContactEmail:     booking.Contact.Email,
		CreatedAt:        booking.CreatedAt,
	}

	for i, seat := range booking.Seats {
		resp.Seats[i] = api.BookedSeat{
			SeatId:       seat.SeatID,
			TicketTypeId: seat.TicketTypeID,
			Price:        seat.Price,
			Status:       string(seat.Status),
		}
	}

	return resp
}

func toBookingSummaries(bookings []domain.BookingSummary) []api.BookingSummary {
	summaries := make([]api.BookingSummary, len(bookings))

	for i, v := range bookings {
		summary := &summaries[i]

		summary.BookingNumber = v.Number
		summary.ScreeningId = v.ScreeningID
		summary.Title = v.Title
		summary.StartsAt = v.StartsAt
		summary.SeatCount = v.SeatCount
		summary.TotalPrice = v.TotalPrice
		summary.Status = string(v.Status)
		summary.CreatedAt = v.CreatedAt
	}

	return summaries
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}

func toPagination(params api.ListBookingsParams) domain.Pagination {
	pagination := domain.Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if params.Page != nil {
		pagination.Page = *params.Page
	}
	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}
	if params.Sort != nil {
		pagination.Sort = *params.Sort
	}

	return pagination
}
