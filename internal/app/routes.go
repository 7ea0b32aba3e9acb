package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r), otelchi.WithRequestMethodInSpanName(true)))
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestUserSession)
	r.Use(app.logRequest)

	r.Get("/healthcheck", app.GetHealth)
	r.Get("/openapi.json", app.GetOpenAPIDocument)
	r.Get("/ticket-types", app.ListTicketTypes)

	r.Route("/screenings/{screeningId}", func(r chi.Router) {
		r.Get("/seat-map", app.GetSeatMap)

		r.Post("/holds", app.AcquireHold)
		r.Delete("/holds", app.ReleaseAllHolds)
		r.Delete("/holds/{seatId}", app.ReleaseHold)

		r.Get("/cart", app.GetCart)
		r.Post("/cart/items", app.AddCartItem)
		r.Patch("/cart/items/{seatId}", app.UpdateCartItem)
		r.Delete("/cart/items/{seatId}", app.RemoveCartItem)

		r.Post("/checkout", app.Checkout)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", app.ListBookings)
		r.Get("/{bookingNumber}", app.GetBooking)
		r.Post("/{bookingNumber}/cancel", app.CancelBooking)
	})

	return r
}
