package domain

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// CapturedSynchronously reports whether the payment is settled at checkout time,
// which makes the resulting booking CONFIRMED instead of PENDING.
func (m PaymentMethod) CapturedSynchronously() bool {
	return m == PaymentMethodCard
}

// InitialBookingStatus returns the status a booking paid with m starts in.
func (m PaymentMethod) InitialBookingStatus() BookingStatus {
	if m.CapturedSynchronously() {
		return BookingStatusConfirmed
	}

	return BookingStatusPending
}
