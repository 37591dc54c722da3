package repository

import (
	"context"
	"time"

	"paypal-billing/internal/domain/model"
)

// StatusChange describes a conditional subscription status write. The update
// only applies while the row's current status is one of From; concurrent
// webhook deliveries therefore race on the transition table, not on a blind
// overwrite.
type StatusChange struct {
	From            []model.SubscriptionStatus
	To              model.SubscriptionStatus
	EndDate         *time.Time
	LastPaymentDate *time.Time
}

// SubscriptionRepository persists subscription records. Subscriptions are only
// ever terminated, never deleted.
type SubscriptionRepository interface {
	Create(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByRemoteID(ctx context.Context, tx Tx, remoteSubscriptionID string) (*model.Subscription, error)
	// ApplyStatus performs the conditional write; ok=false means the row was not
	// in any of the expected source statuses (lost race or duplicate delivery).
	ApplyStatus(ctx context.Context, tx Tx, id string, change StatusChange) (ok bool, err error)
}

// UserRepository resolves the contact details the saga and notifier need.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}
