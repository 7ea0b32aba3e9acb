package app

import (
	"net/http"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/checkout"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func (app *Application) Checkout(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CheckoutRequest

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

	req := checkout.Request{
		ScreeningID:   screeningID,
		Owner:         app.ownerKey(r),
		PaymentMethod: domain.PaymentMethod(input.PaymentMethod),
		Contact: domain.Contact{
			Name:  input.Contact.Name,
			Email: string(input.Contact.Email),
		},
	}

	if input.PaymentReference != nil {
		req.PaymentReference = *input.PaymentReference
	}
	if input.Contact.Phone != nil {
		req.Contact.Phone = *input.Contact.Phone
	}

	result, err := app.checkout.Checkout(r.Context(), req)
	if err != nil {
		logger.Warn("checkout did not commit", "screening_id", screeningID, "state", result.State, "error", err)
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := toApiBooking(result.Booking)
	resp.Confirmation = result.Confirmation

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
