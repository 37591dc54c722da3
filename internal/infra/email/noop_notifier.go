// File: internal/infra/email/noop_notifier.go
package email

import (
	"context"

	"github.com/rs/zerolog"

	"paypal-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs notifications instead of delivering them. Used in
// development and in environments without a mail or broker backend.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) note(event, email string) error {
	n.log.Info().Str("event", event).Str("email", email).Msg("notification (noop)")
	return nil
}

func (n *NoopNotifier) SubscriptionCreated(_ context.Context, email string) error {
	return n.note("subscription.created", email)
}

func (n *NoopNotifier) SubscriptionActivated(_ context.Context, email string) error {
	return n.note("subscription.activated", email)
}

func (n *NoopNotifier) SubscriptionUpdated(_ context.Context, email string) error {
	return n.note("subscription.updated", email)
}

func (n *NoopNotifier) SubscriptionCancelled(_ context.Context, email string) error {
	return n.note("subscription.cancelled", email)
}

func (n *NoopNotifier) SubscriptionSuspended(_ context.Context, email string) error {
	return n.note("subscription.suspended", email)
}

func (n *NoopNotifier) PaymentFailed(_ context.Context, email string) error {
	return n.note("payment.failed", email)
}

func (n *NoopNotifier) PaymentCompleted(_ context.Context, email string) error {
	return n.note("payment.completed", email)
}

func (n *NoopNotifier) SubscriptionFailed(_ context.Context, email, errorMessage string) error {
	n.log.Info().Str("event", "subscription.failed").Str("email", email).
		Str("error", errorMessage).Msg("notification (noop)")
	return nil
}
