package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/domain"
	appvalidator "github.com/metinatakli/cinex-booking/internal/validator"
)

const (
	ErrInternalServer   = "The server encountered a problem and could not process your request"
	ErrNotFound         = "The requested resource not found"
	ErrMethodNotAllowed = "The method is not supported for this resource"
	ErrValidation       = "One or more fields are invalid"
	ErrUnavailable      = "The service is temporarily unavailable, please retry"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := api.ValidationErrorResponse{
		Message:          ErrValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: make([]api.ValidationError, len(validationErrors)),
	}

	for i, fieldErr := range validationErrors {
		resp.ValidationErrors[i] = api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		}
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// storeTimeoutResponse keeps the storage error in the log; the client only learns
// that it may retry.
func (app *Application) storeTimeoutResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.contextGetLogger(r).Warn("storage timed out",
		"error", err, "method", r.Method, "uri", r.URL.RequestURI())

	w.Header().Set("Retry-After", "1")
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrUnavailable)
}

// bookingErrorResponse maps the booking error taxonomy onto HTTP statuses. Anything
// outside of it is reported as an internal error.
func (app *Application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logger := app.contextGetLogger(r)

	switch {
	case errors.Is(err, domain.ErrStoreTimeout):
		app.storeTimeoutResponse(w, r, err)
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrHoldNotFound):
		app.errorResponse(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotLockOwner):
		logger.Warn("hold ownership check failed", "error", err)
		app.errorResponse(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrLockExpired):
		app.errorResponse(w, r, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrSeatNotAvailable):
		logger.Info("seat not available", "error", err)
		app.errorResponse(w, r, http.StatusConflict, domain.ErrSeatNotAvailable.Error())
	case errors.Is(err, domain.ErrSeatNotLocked),
		errors.Is(err, domain.ErrScreeningInactive),
		errors.Is(err, domain.ErrCheckoutAborted),
		errors.Is(err, domain.ErrCartFull),
		errors.Is(err, domain.ErrBookingNotEditable):
		app.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTicketType),
		errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrCartEmpty):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		app.serverErrorResponse(w, r, err)
	}
}
