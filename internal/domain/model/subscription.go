package model

import (
	"time"

	"paypal-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

// Terminal reports whether the subscription can never leave this status.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// Subscription is a recurring billing agreement. It is created PENDING together
// with the remote agreement and only ever terminated, never deleted.
type Subscription struct {
	ID     string // UUID
	UserID string
	PlanID string // gateway billing plan id
	Amount int64  // minor units charged per cycle
	Currency string
	Status   SubscriptionStatus
	// RemoteSubscriptionID is the gateway agreement id. Write-once: set when the
	// remote agreement is created, never mutated afterwards.
	RemoteSubscriptionID *string
	StartDate            time.Time
	EndDate              *time.Time // set iff status is CANCELLED or EXPIRED
	LastPaymentDate      *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewSubscription builds a PENDING subscription bound to the given remote agreement.
func NewSubscription(id, userID, planID string, amount int64, currency, remoteID string, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || planID == "" || remoteID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := ValidateCurrency(currency); err != nil {
		return nil, err
	}
	rid := remoteID
	return &Subscription{
		ID:                   id,
		UserID:               userID,
		PlanID:               planID,
		Amount:               amount,
		Currency:             currency,
		Status:               SubscriptionStatusPending,
		RemoteSubscriptionID: &rid,
		StartDate:            now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// User carries the contact details the saga needs for the remote subscriber
// block and for notifications.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}
