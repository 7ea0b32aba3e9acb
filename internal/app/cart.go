package app

import (
	"net/http"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func (app *Application) GetCart(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	cart, err := app.carts.Get(r.Context(), screeningID, app.ownerKey(r))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiCart(cart), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) AddCartItem(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.AddCartItemRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	cart, err := app.carts.AddSeat(r.Context(), screeningID, app.ownerKey(r), input.SeatId, input.TicketTypeId)
	if err != nil {
		logger.Warn("failed to add seat to cart", "screening_id", screeningID, "seat_id", input.SeatId, "error", err)
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toApiCart(cart), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatID, err := app.readIDParam(r, "seatId", "seat ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.UpdateCartItemRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	cart, err := app.carts.UpdateTicketType(r.Context(), screeningID, app.ownerKey(r), seatID, input.TicketTypeId)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiCart(cart), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatID, err := app.readIDParam(r, "seatId", "seat ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	cart, err := app.carts.RemoveSeat(r.Context(), screeningID, app.ownerKey(r), seatID)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toApiCart(cart), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiCart(cart *domain.Cart) api.CartResponse {
	resp := api.CartResponse{
		ScreeningId:   cart.ScreeningID,
		Items:         make([]api.CartItem, len(cart.Items)),
		Subtotal:      cart.Subtotal(),
		HoldExpiresAt: cart.HoldExpiresAt(),
	}

	for i, item := range cart.Items {
		resp.Items[i] = api.CartItem{
			SeatId:        item.SeatID,
			Row:           item.Seat.Row,
			Number:        item.Seat.Number,
			TicketTypeId:  item.TicketTypeID,
			TicketType:    item.TicketType.Name,
			Price:         item.Price,
			HoldExpiresAt: item.HoldExpiresAt,
		}
	}

	return resp
}
