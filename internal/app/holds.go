package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func (app *Application) AcquireHold(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.AcquireHoldRequest

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

	var ttl time.Duration
	if input.TtlSeconds != nil {
		ttl = time.Duration(*input.TtlSeconds) * time.Second
	}

	hold, outcome, err := app.locks.Acquire(r.Context(), screeningID, input.SeatId, app.ownerKey(r), ttl)
	if err != nil {
		if errors.Is(err, domain.ErrSeatNotAvailable) {
			logger.Info("seat hold rejected", "screening_id", screeningID, "seat_id", input.SeatId)
		}

		app.bookingErrorResponse(w, r, err)
		return
	}

	status := http.StatusCreated
	if outcome == domain.AcquireAlreadyHeld {
		status = http.StatusOK
	}

	resp := api.HoldResponse{
		ScreeningId: hold.ScreeningID,
		SeatId:      hold.SeatID,
		Outcome:     outcome.String(),
		ExpiresAt:   hold.ExpiresAt,
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseHold(w http.ResponseWriter, r *http.Request) {
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

	_, err = app.locks.Release(r.Context(), screeningID, seatID, app.ownerKey(r))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReleaseAllHolds gives up every seat the caller holds for the screening and drops
// the cart built on them.
func (app *Application) ReleaseAllHolds(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	released, err := app.carts.Abandon(r.Context(), screeningID, app.ownerKey(r))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := api.ReleaseAllResponse{
		Released: len(released),
		SeatIds:  make([]int, len(released)),
	}

	for i, hold := range released {
		resp.SeatIds[i] = hold.SeatID
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
