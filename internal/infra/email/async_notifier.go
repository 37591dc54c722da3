// File: internal/infra/email/async_notifier.go
package email

import (
	"context"

	"github.com/rs/zerolog"

	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/infra/worker"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands deliveries to a worker pool so lifecycle operations
// never wait on SMTP or the broker. Submission failures (saturated queue)
// are logged and dropped.
type AsyncNotifier struct {
	inner adapter.Notifier
	pool  *worker.Pool
	log   *zerolog.Logger
}

func NewAsyncNotifier(inner adapter.Notifier, pool *worker.Pool, logger *zerolog.Logger) *AsyncNotifier {
	return &AsyncNotifier{inner: inner, pool: pool, log: logger}
}

func (a *AsyncNotifier) enqueue(event, email string, fn func(ctx context.Context) error) error {
	if err := a.pool.Submit(worker.Task(fn)); err != nil {
		a.log.Warn().Err(err).Str("event", event).Str("email", email).
			Msg("notification dropped")
	}
	return nil
}

func (a *AsyncNotifier) SubscriptionCreated(_ context.Context, email string) error {
	return a.enqueue("subscription.created", email, func(ctx context.Context) error {
		return a.inner.SubscriptionCreated(ctx, email)
	})
}

func (a *AsyncNotifier) SubscriptionActivated(_ context.Context, email string) error {
	return a.enqueue("subscription.activated", email, func(ctx context.Context) error {
		return a.inner.SubscriptionActivated(ctx, email)
	})
}

func (a *AsyncNotifier) SubscriptionUpdated(_ context.Context, email string) error {
	return a.enqueue("subscription.updated", email, func(ctx context.Context) error {
		return a.inner.SubscriptionUpdated(ctx, email)
	})
}

func (a *AsyncNotifier) SubscriptionCancelled(_ context.Context, email string) error {
	return a.enqueue("subscription.cancelled", email, func(ctx context.Context) error {
		return a.inner.SubscriptionCancelled(ctx, email)
	})
}

func (a *AsyncNotifier) SubscriptionSuspended(_ context.Context, email string) error {
	return a.enqueue("subscription.suspended", email, func(ctx context.Context) error {
		return a.inner.SubscriptionSuspended(ctx, email)
	})
}

func (a *AsyncNotifier) PaymentFailed(_ context.Context, email string) error {
	return a.enqueue("payment.failed", email, func(ctx context.Context) error {
		return a.inner.PaymentFailed(ctx, email)
	})
}

func (a *AsyncNotifier) PaymentCompleted(_ context.Context, email string) error {
	return a.enqueue("payment.completed", email, func(ctx context.Context) error {
		return a.inner.PaymentCompleted(ctx, email)
	})
}

func (a *AsyncNotifier) SubscriptionFailed(_ context.Context, email, errorMessage string) error {
	return a.enqueue("subscription.failed", email, func(ctx context.Context) error {
		return a.inner.SubscriptionFailed(ctx, email, errorMessage)
	})
}
