// Package payment produces the payment confirmation handed back after checkout. No
// gateway is called: the confirmation is a signed record of the booking number,
// amount, method and the caller-supplied payment reference.
package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
)

const issuer = "cinex-booking"

var ErrInvalidConfirmation = errors.New("invalid payment confirmation")

type ConfirmationClaims struct {
	BookingNumber    string               `json:"bookingNumber"`
	ScreeningID      int                  `json:"screeningId"`
	Amount           string               `json:"amount"`
	PaymentMethod    domain.PaymentMethod `json:"paymentMethod"`
	PaymentReference string               `json:"paymentReference,omitempty"`
	Status           domain.BookingStatus `json:"status"`
	jwt.RegisteredClaims
}

type ConfirmationSigner struct {
	key []byte
	now func() time.Time
}

func NewConfirmationSigner(key string) (*ConfirmationSigner, error) {
	if len(key) < 32 {
		return nil, errors.New("confirmation signing key must be at least 32 bytes")
	}

	return &ConfirmationSigner{
		key: []byte(key),
		now: time.Now,
	}, nil
}

// Sign returns an HS256 token describing the booking's payment.
func (s *ConfirmationSigner) Sign(booking *domain.Booking) (string, error) {
	claims := ConfirmationClaims{
		BookingNumber:    booking.Number,
		ScreeningID:      booking.ScreeningID,
		Amount:           booking.TotalPrice.StringFixed(2),
		PaymentMethod:    booking.PaymentMethod,
		PaymentReference: booking.PaymentReference,
		Status:           booking.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  booking.Number,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation for booking %s: %w", booking.Number, err)
	}

	return signed, nil
}

// Verify parses a confirmation produced by Sign and returns its claims.
func (s *ConfirmationSigner) Verify(confirmation string) (*ConfirmationClaims, error) {
	claims := &ConfirmationClaims{}

	_, err := jwt.ParseWithClaims(confirmation, claims,
		func(t *jwt.Token) (any, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfirmation, err)
	}

	if _, err := decimal.NewFromString(claims.Amount); err != nil {
		return nil, fmt.Errorf("%w: malformed amount", ErrInvalidConfirmation)
	}

	return claims, nil
}
