package redis

import (
	"context"
	"time"

	"paypal-billing/internal/domain/ports/repository"
)

var _ repository.WebhookEventCache = (*EventDedupe)(nil)

// EventDedupe remembers processed webhook event ids with SetNX so redelivered
// events can be acknowledged without touching the database. Entries expire
// after the TTL; the payments unique index remains the authoritative guard.
type EventDedupe struct {
	cli *Client
	ttl time.Duration
}

func NewEventDedupe(c *Client, ttl time.Duration) *EventDedupe {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &EventDedupe{cli: c, ttl: ttl}
}

func (d *EventDedupe) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return d.cli.cli.SetNX(ctx, "webhook:event:"+eventID, 1, d.ttl).Result()
}

func (d *EventDedupe) Forget(ctx context.Context, eventID string) error {
	return d.cli.cli.Del(ctx, "webhook:event:"+eventID).Err()
}
