package adapter

import "context"

// Notifier delivers lifecycle notifications to a user's email address.
// Delivery is best effort: implementations log failures and the lifecycle
// never blocks on (or fails because of) a notification.
type Notifier interface {
	SubscriptionCreated(ctx context.Context, email string) error
	SubscriptionActivated(ctx context.Context, email string) error
	SubscriptionUpdated(ctx context.Context, email string) error
	SubscriptionCancelled(ctx context.Context, email string) error
	SubscriptionSuspended(ctx context.Context, email string) error
	PaymentFailed(ctx context.Context, email string) error
	PaymentCompleted(ctx context.Context, email string) error
	// SubscriptionFailed reports a failed creation saga together with the cause.
	SubscriptionFailed(ctx context.Context, email, errorMessage string) error
}
