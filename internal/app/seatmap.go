package app

import (
	"net/http"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
)

func (app *Application) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	screeningID, err := app.readIDParam(r, "screeningId", "screening ID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatMap, err := app.seatMaps.Project(r.Context(), screeningID, app.ownerKey(r))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	if len(seatMap.Seats) == 0 {
		app.notFoundResponse(w, r)
		return
	}

	resp := api.SeatMapResponse{
		ScreeningId: seatMap.ScreeningID,
		HallId:      seatMap.HallID,
		Title:       seatMap.Title,
		StartsAt:    seatMap.StartsAt,
		SeatRows:    toSeatRows(seatMap.Seats),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatRows(seats []domain.SeatState) []api.SeatRow {
	// Seats arrive sorted by row and number, so rows can be cut in a single pass.

	var seatRows []api.SeatRow
	currentRow := api.SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = api.SeatRow{Row: v.Row}
		}

		currentRow.Seats = append(currentRow.Seats, api.Seat{
			Id:            v.ID,
			Row:           v.Row,
			Number:        v.Number,
			Class:         v.Class,
			Status:        api.SeatStatus(v.Status),
			SelectedByYou: v.SelectedByYou,
			HoldExpiresAt: v.HoldExpiresAt,
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
