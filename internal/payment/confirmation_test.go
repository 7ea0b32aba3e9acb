package payment

import (
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewConfirmationSigner_RejectsShortKey(t *testing.T) {
	_, err := NewConfirmationSigner("short")
	assert.Error(t, err)
}

func TestConfirmationSigner_RoundTrip(t *testing.T) {
	signer, err := NewConfirmationSigner(testKey)
	require.NoError(t, err)

	booking := &domain.Booking{
		Number:           "0190f3a4-7c2e-7a51-9d3c-4b1f6e8a2c10",
		ScreeningID:      10,
		TotalPrice:       decimal.NewFromInt(30),
		Status:           domain.BookingStatusConfirmed,
		PaymentMethod:    domain.PaymentMethodCard,
		PaymentReference: "txn-42",
	}

	token, err := signer.Sign(booking)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, booking.Number, claims.BookingNumber)
	assert.Equal(t, booking.Number, claims.Subject)
	assert.Equal(t, "30.00", claims.Amount)
	assert.Equal(t, domain.PaymentMethodCard, claims.PaymentMethod)
	assert.Equal(t, "txn-42", claims.PaymentReference)
	assert.Equal(t, domain.BookingStatusConfirmed, claims.Status)
}

func TestConfirmationSigner_RejectsForeignKey(t *testing.T) {
	signer, err := NewConfirmationSigner(testKey)
	require.NoError(t, err)

	other, err := NewConfirmationSigner("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	token, err := other.Sign(&domain.Booking{Number: "b-1", TotalPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidConfirmation)
}

func TestConfirmationSigner_RejectsTokenIssuedInTheFuture(t *testing.T) {
	signer, err := NewConfirmationSigner(testKey)
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(time.Hour) }
	token, err := signer.Sign(&domain.Booking{Number: "b-1", TotalPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)

	signer.now = time.Now
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidConfirmation)
}
