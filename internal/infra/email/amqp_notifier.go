// File: internal/infra/email/amqp_notifier.go
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"paypal-billing/internal/config"
	"paypal-billing/internal/domain/ports/adapter"
)

// DefaultExchange is the topic exchange notification messages are published to.
const DefaultExchange = "billing.notifications"

var _ adapter.Notifier = (*AMQPNotifier)(nil)

// AMQPNotifier publishes lifecycle notifications to a RabbitMQ topic exchange
// instead of sending mail directly. A downstream consumer owns delivery.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zerolog.Logger
	mu       sync.Mutex
}

type notificationMessage struct {
	Event string `json:"event"`
	Email string `json:"email"`
	Error string `json:"error,omitempty"`
	At    string `json:"at"`
}

func NewAMQPNotifier(cfg config.AMQPConfig, logger *zerolog.Logger) (*AMQPNotifier, error) {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().Str("exchange", exchange).Msg("AMQP notifier connected")

	return &AMQPNotifier{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      logger,
	}, nil
}

func (n *AMQPNotifier) publish(ctx context.Context, event, email, errMsg string) error {
	body, err := json.Marshal(notificationMessage{
		Event: event,
		Email: email,
		Error: errMsg,
		At:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(ctx,
		n.exchange,            // exchange
		"notification."+event, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		n.log.Error().Err(err).Str("event", event).Msg("failed to publish notification")
		return err
	}

	n.log.Debug().Str("event", event).Str("email", email).Msg("notification published")
	return nil
}

func (n *AMQPNotifier) SubscriptionCreated(ctx context.Context, email string) error {
	return n.publish(ctx, "subscription.created", email, "")
}

func (n *AMQPNotifier) SubscriptionActivated(ctx context.Context, email string) error {
	return n.publish(ctx, "subscription.activated", email, "")
}

func (n *AMQPNotifier) SubscriptionUpdated(ctx context.Context, email string) error {
	return n.publish(ctx, "subscription.updated", email, "")
}

func (n *AMQPNotifier) SubscriptionCancelled(ctx context.Context, email string) error {
	return n.publish(ctx, "subscription.cancelled", email, "")
}

func (n *AMQPNotifier) SubscriptionSuspended(ctx context.Context, email string) error {
	return n.publish(ctx, "subscription.suspended", email, "")
}

func (n *AMQPNotifier) PaymentFailed(ctx context.Context, email string) error {
	return n.publish(ctx, "payment.failed", email, "")
}

func (n *AMQPNotifier) PaymentCompleted(ctx context.Context, email string) error {
	return n.publish(ctx, "payment.completed", email, "")
}

func (n *AMQPNotifier) SubscriptionFailed(ctx context.Context, email, errorMessage string) error {
	return n.publish(ctx, "subscription.failed", email, errorMessage)
}

// Close closes the channel and connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		if err := n.channel.Close(); err != nil {
			n.log.Warn().Err(err).Msg("error closing channel")
		}
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
