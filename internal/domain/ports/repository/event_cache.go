package repository

import "context"

// WebhookEventCache remembers which gateway event ids have already been
// processed. It is a best-effort fast path: the unique constraint on recorded
// payment rows stays authoritative when the cache is unavailable.
type WebhookEventCache interface {
	// MarkProcessed records the event id and reports whether this delivery was
	// the first one seen.
	MarkProcessed(ctx context.Context, eventID string) (first bool, err error)
	// Forget releases a previously marked event id so a redelivery is processed
	// again. Called when applying the event failed after the mark.
	Forget(ctx context.Context, eventID string) error
}
