package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	CARD         PaymentMethod = "CARD"
	CASH         PaymentMethod = "CASH"
	BANKTRANSFER PaymentMethod = "BANK_TRANSFER"
)

type SeatStatus string

const (
	FREE   SeatStatus = "FREE"
	BOOKED SeatStatus = "BOOKED"
	SOLD   SeatStatus = "SOLD"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type AcquireHoldRequest struct {
	SeatId int `json:"seatId" validate:"required,gt=0"`

	// TtlSeconds overrides the default hold duration, up to the configured maximum.
	TtlSeconds *int `json:"ttlSeconds,omitempty" validate:"omitempty,gt=0"`
}

type HoldResponse struct {
	ScreeningId int       `json:"screeningId"`
	SeatId      int       `json:"seatId"`
	Outcome     string    `json:"outcome"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type ReleaseAllResponse struct {
	Released int   `json:"released"`
	SeatIds  []int `json:"seatIds"`
}

type Seat struct {
	Id            int        `json:"id"`
	Row           int        `json:"row"`
	Number        int        `json:"number"`
	Class         string     `json:"class"`
	Status        SeatStatus `json:"status"`
	SelectedByYou bool       `json:"selectedByYou"`
	HoldExpiresAt *time.Time `json:"holdExpiresAt,omitempty"`
}

type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	ScreeningId int       `json:"screeningId"`
	HallId      int       `json:"hallId"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	SeatRows    []SeatRow `json:"seatRows"`
}

type AddCartItemRequest struct {
	SeatId       int `json:"seatId" validate:"required,gt=0"`
	TicketTypeId int `json:"ticketTypeId" validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	TicketTypeId int `json:"ticketTypeId" validate:"required,gt=0"`
}

type CartItem struct {
	SeatId        int             `json:"seatId"`
	Row           int             `json:"row"`
	Number        int             `json:"number"`
	TicketTypeId  int             `json:"ticketTypeId"`
	TicketType    string          `json:"ticketType"`
	Price         decimal.Decimal `json:"price"`
	HoldExpiresAt time.Time       `json:"holdExpiresAt"`
}

type CartResponse struct {
	ScreeningId   int             `json:"screeningId"`
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	HoldExpiresAt *time.Time      `json:"holdExpiresAt,omitempty"`
}

type Contact struct {
	Name  string              `json:"name" validate:"required,max=100"`
	Email openapi_types.Email `json:"email" validate:"required,email"`
	Phone *string             `json:"phone,omitempty" validate:"omitempty,e164"`
}

type CheckoutRequest struct {
	PaymentMethod    PaymentMethod `json:"paymentMethod" validate:"required,payment_method"`
	PaymentReference *string       `json:"paymentReference,omitempty" validate:"omitempty,max=128"`
	Contact          Contact       `json:"contact"`
}

type BookedSeat struct {
	SeatId       int             `json:"seatId"`
	TicketTypeId int             `json:"ticketTypeId"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
}

type BookingResponse struct {
	BookingNumber    string          `json:"bookingNumber"`
	ScreeningId      int             `json:"screeningId"`
	Status           string          `json:"status"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentReference string          `json:"paymentReference,omitempty"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	Seats            []BookedSeat    `json:"seats"`
	ContactName      string          `json:"contactName"`
	ContactEmail     string          `json:"contactEmail"`
	CreatedAt        time.Time       `json:"createdAt"`
	Confirmation     string          `json:"confirmation,omitempty"`
}

type BookingSummary struct {
	BookingNumber string          `json:"bookingNumber"`
	ScreeningId   int             `json:"screeningId"`
	Title         string          `json:"title"`
	StartsAt      time.Time       `json:"startsAt"`
	SeatCount     int             `json:"seatCount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type BookingListResponse struct {
	Bookings []BookingSummary `json:"bookings"`
	Metadata Metadata         `json:"metadata"`
}

type ListBookingsParams struct {
	Page     *int    `form:"page,omitempty" json:"page,omitempty" validate:"omitempty,min=1,max=1000"`
	PageSize *int    `form:"pageSize,omitempty" json:"pageSize,omitempty" validate:"omitempty,min=1,max=100"`
	Sort     *string `form:"sort,omitempty" json:"sort,omitempty" validate:"omitempty,booking_sort"`
}

type TicketType struct {
	Id       int             `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Modifier decimal.Decimal `json:"modifier"`
}

type TicketTypesResponse struct {
	TicketTypes []TicketType `json:"ticketTypes"`
}
