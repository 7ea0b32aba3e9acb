package domain

import (
	"context"
	"time"
)

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "ACTIVE"
	HoldStatusReleased HoldStatus = "RELEASED"
	HoldStatusExpired  HoldStatus = "EXPIRED"
)

// OwnerKey identifies who holds a seat: the session and, once the identity
// collaborator has authenticated the caller, the username.
type OwnerKey struct {
	SessionID string
	Username  string
}

func (o OwnerKey) IsZero() bool {
	return o.SessionID == "" && o.Username == ""
}

// Matches reports whether two owner keys denote the same holder. Sessions are
// compared first; an authenticated username carries ownership across sessions.
func (o OwnerKey) Matches(other OwnerKey) bool {
	if o.SessionID != "" && o.SessionID == other.SessionID {
		return true
	}

	return o.Username != "" && o.Username == other.Username
}

type SeatHold struct {
	ID          int64
	ScreeningID int
	SeatID      int
	Owner       OwnerKey
	Status      HoldStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LiveAt reports whether the hold still grants exclusivity at the given instant.
// An ACTIVE row whose expiration has elapsed is treated as free.
func (h SeatHold) LiveAt(now time.Time) bool {
	return h.Status == HoldStatusActive && now.Before(h.ExpiresAt)
}

type AcquireOutcome int

const (
	AcquireGranted AcquireOutcome = iota + 1
	AcquireAlreadyHeld
)

func (o AcquireOutcome) String() string {
	switch o {
	case AcquireGranted:
		return "granted"
	case AcquireAlreadyHeld:
		return "already_held"
	default:
		return "unknown"
	}
}

type AcquireRequest struct {
	ScreeningID int
	SeatID      int
	Owner       OwnerKey
	Now         time.Time
	ExpiresAt   time.Time
}

type HoldRepository interface {
	Acquire(ctx context.Context, req AcquireRequest) (*SeatHold, AcquireOutcome, error)
	Release(ctx context.Context, screeningID, seatID int, owner OwnerKey, now time.Time) (*SeatHold, error)
	ReleaseAll(ctx context.Context, screeningID int, owner OwnerKey, now time.Time) ([]SeatHold, error)
	ActiveHolds(ctx context.Context, screeningID int, now time.Time) ([]SeatHold, error)
	ExpireElapsed(ctx context.Context, now time.Time, limit int) ([]SeatHold, error)
}
