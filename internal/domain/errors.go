package domain

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrSeatNotAvailable   = errors.New("seat is held by another customer or already sold")
	ErrLockExpired        = errors.New("your seat hold has expired, please select the seat again")
	ErrNotLockOwner       = errors.New("seat hold does not belong to the current session")
	ErrHoldNotFound       = errors.New("no active hold exists for the seat")
	ErrSeatNotLocked      = errors.New("seat must be held before it can be added to the cart")
	ErrScreeningInactive  = errors.New("screening is not open for sale")
	ErrInvalidTicketType  = errors.New("ticket type is unknown or inactive")
	ErrCheckoutAborted    = errors.New("checkout aborted: one or more seat holds are no longer valid")
	ErrValidationFailed   = errors.New("validation failed")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrCartFull           = errors.New("cart has reached the maximum number of seats")
	ErrStoreTimeout       = errors.New("storage did not respond in time, please retry")
	ErrBookingNotEditable = errors.New("booking can no longer be cancelled")
)
