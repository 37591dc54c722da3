// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/domain/ports/repository"
	"paypal-billing/internal/infra/logging"
	"paypal-billing/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// Handle authenticates a raw gateway event and applies it to local state.
	// A nil return means the event must be acknowledged; domain.ErrBadSignature
	// rejects the delivery and domain.ErrInternalFailure asks the gateway to
	// retry transport-level.
	Handle(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders) error
}

type webhookUC struct {
	gateway   adapter.GatewayClient
	subs      repository.SubscriptionRepository
	payments  repository.PaymentRepository
	users     repository.UserRepository
	notifier  adapter.Notifier
	tm        repository.TransactionManager
	seen      repository.WebhookEventCache
	webhookID string
	log       *zerolog.Logger
}

func NewWebhookUseCase(
	gateway adapter.GatewayClient,
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	seen repository.WebhookEventCache,
	webhookID string,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		gateway:   gateway,
		subs:      subs,
		payments:  payments,
		users:     users,
		notifier:  notifier,
		tm:        tm,
		seen:      seen,
		webhookID: webhookID,
		log:       logger,
	}
}

// gatewayEvent is the envelope shape shared by all gateway webhook deliveries.
type gatewayEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
		// BillingAgreementID correlates sale events with their subscription; for
		// subscription lifecycle events the agreement id is Resource.ID itself.
		BillingAgreementID string `json:"billing_agreement_id"`
		Amount             struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"amount"`
	} `json:"resource"`
}

func (u *webhookUC) Handle(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders) error {
	// Verification is fail closed: a verification transport error is treated the
	// same as an explicit FAILURE verdict.
	verdict, err := u.gateway.VerifyWebhookSignature(ctx, rawEvent, headers, u.webhookID)
	if err != nil || verdict != adapter.VerificationSuccess {
		metrics.IncWebhookEvent("unknown", "bad_signature")
		u.log.Warn().Err(err).Str("verdict", verdict).Msg("webhook signature rejected")
		return domain.ErrBadSignature
	}

	var ev gatewayEvent
	if err := json.Unmarshal(rawEvent, &ev); err != nil {
		// Authentic but unparseable; retrying will not help, so acknowledge.
		metrics.IncWebhookEvent("unknown", "malformed")
		u.log.Warn().Err(err).Msg("webhook body not parseable")
		return nil
	}
	if ev.ID != "" {
		ctx = logging.WithEventID(ctx, ev.ID)
	}

	marked := false
	if ev.ID != "" && u.seen != nil {
		first, err := u.seen.MarkProcessed(ctx, ev.ID)
		switch {
		case err != nil:
			u.log.Warn().Err(err).Str("event_id", ev.ID).Msg("event cache unavailable, processing anyway")
		case !first:
			metrics.IncWebhookEvent(ev.EventType, "duplicate")
			u.log.Debug().Str("event_id", ev.ID).Msg("duplicate webhook delivery")
			return nil
		default:
			marked = true
		}
	}

	lifecycle := model.DecodeGatewayEvent(ev.EventType)
	if lifecycle == model.EventUnhandled {
		// Gateways introduce event types over time; rejecting would make the
		// gateway retry forever, so log and acknowledge.
		metrics.IncWebhookEvent(ev.EventType, "unhandled")
		u.log.Info().Str("event_type", ev.EventType).Str("event_id", ev.ID).Msg("unhandled webhook event type")
		return nil
	}

	remoteID := ev.Resource.ID
	if lifecycle == model.EventRemotePaymentCompleted {
		remoteID = ev.Resource.BillingAgreementID
	}
	if remoteID == "" {
		metrics.IncWebhookEvent(ev.EventType, "unmatched")
		u.log.Warn().Str("event_id", ev.ID).Msg("webhook event carries no subscription reference")
		return nil
	}

	outcome, err := u.apply(ctx, &ev, lifecycle, remoteID)
	metrics.IncWebhookEvent(ev.EventType, outcome)
	if outcome == "applied" || outcome == "noop" {
		metrics.IncSubscriptionTransition(string(lifecycle), outcome)
	}
	if err != nil && marked {
		// The delivery is rejected for a transport-level retry; release the
		// dedupe mark so the redelivered event id is not short-circuited.
		if ferr := u.seen.Forget(ctx, ev.ID); ferr != nil {
			u.log.Warn().Err(ferr).Str("event_id", ev.ID).Msg("releasing event cache mark failed")
		}
	}
	return err
}

// apply performs the transition inside one transaction so the status write and
// any recorded payment row commit together.
func (u *webhookUC) apply(ctx context.Context, ev *gatewayEvent, lifecycle model.LifecycleEvent, remoteID string) (string, error) {
	var (
		userID  string
		subID   string
		tr      model.Transition
		matched bool
		applied bool
	)
	log := logging.With(ctx, u.log)

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByRemoteID(ctx, tx, remoteID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Possibly racing the saga's local commit, or a foreign agreement.
				// The gateway retries delivery on its own schedule.
				log.Warn().Str("remote_subscription_id", remoteID).
					Msg("webhook event for unknown subscription")
				return nil
			}
			return fmt.Errorf("correlate subscription: %w", domain.ErrInternalFailure)
		}
		matched = true
		userID = sub.UserID
		subID = sub.ID

		var ok bool
		tr, ok = model.NextState(sub.Status, lifecycle)
		if !ok {
			if sub.Status.Terminal() {
				log.Info().Str("subscription_id", sub.ID).Str("status", string(sub.Status)).
					Str("event", string(lifecycle)).Msg("event on terminal subscription, ignored")
			} else {
				log.Warn().Str("subscription_id", sub.ID).Str("status", string(sub.Status)).
					Str("event", string(lifecycle)).Msg("transition not allowed, ignored")
			}
			return nil
		}

		if tr.RecordPayment != "" {
			if err := u.recordPayment(ctx, tx, sub, ev, tr.RecordPayment); err != nil {
				return err
			}
		}

		change := repository.StatusChange{
			From: []model.SubscriptionStatus{sub.Status},
			To:   tr.Next,
		}
		now := time.Now()
		if tr.SetEndDate {
			change.EndDate = &now
		}
		if tr.SetLastPaymentDate {
			change.LastPaymentDate = &now
		}
		applied, err = u.subs.ApplyStatus(ctx, tx, sub.ID, change)
		if err != nil {
			return fmt.Errorf("apply transition: %w", domain.ErrInternalFailure)
		}
		if !applied {
			log.Warn().Str("subscription_id", sub.ID).Str("event", string(lifecycle)).
				Msg("transition lost a concurrent race, ignored")
		}
		return nil
	})
	if err != nil {
		return "error", err
	}
	if !matched {
		return "unmatched", nil
	}
	if !applied {
		return "noop", nil
	}

	u.notify(ctx, userID, subID, tr.Notice)
	log.Info().Str("subscription_id", subID).Str("event", string(lifecycle)).
		Str("status", string(tr.Next)).Msg("webhook transition applied")
	return "applied", nil
}

// recordPayment writes the payment row a PAYMENT_* event specifies. Duplicate
// remote transaction ids are rejected by the unique index and logged loudly;
// the event is still acknowledged.
func (u *webhookUC) recordPayment(ctx context.Context, tx repository.Tx, sub *model.Subscription, ev *gatewayEvent, status model.PaymentStatus) error {
	amount := sub.Amount
	currency := sub.Currency
	if ev.Resource.Amount.Total != "" {
		if parsed, err := model.ParseAmount(ev.Resource.Amount.Total); err == nil {
			amount = parsed
			currency = ev.Resource.Amount.Currency
		}
	}
	var remoteTxnID *string
	if status == model.PaymentStatusCompleted && ev.Resource.ID != "" {
		id := ev.Resource.ID
		remoteTxnID = &id
	}
	now := time.Now()
	p := &model.Payment{
		ID:                  uuid.NewString(),
		UserID:              sub.UserID,
		SubscriptionID:      &sub.ID,
		Amount:              amount,
		Currency:            currency,
		Status:              status,
		RemoteTransactionID: remoteTxnID,
		PaymentMethod:       model.PaymentMethodPayPal,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := u.payments.Create(ctx, tx, p); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			u.log.Error().Str("remote_transaction_id", ev.Resource.ID).Str("event_id", ev.ID).
				Msg("DUPLICATE: payment event redelivered for an already-recorded transaction")
			return nil
		}
		return fmt.Errorf("record payment: %w", domain.ErrInternalFailure)
	}
	metrics.IncPayment(string(status))
	if status == model.PaymentStatusCompleted {
		metrics.AddPaymentRevenue(currency, amount)
	}
	return nil
}

// notify resolves the user's email and fires the transition's notification.
// Failures here are logged and swallowed; notifications are non-critical.
func (u *webhookUC) notify(ctx context.Context, userID, subID string, notice model.Notice) {
	if notice == model.NoticeNone {
		return
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		u.log.Warn().Err(err).Str("subscription_id", subID).Msg("contact lookup for notification failed")
		return
	}
	switch notice {
	case model.NoticeCreated:
		err = u.notifier.SubscriptionCreated(ctx, user.Email)
	case model.NoticeActivated:
		err = u.notifier.SubscriptionActivated(ctx, user.Email)
	case model.NoticeUpdated:
		err = u.notifier.SubscriptionUpdated(ctx, user.Email)
	case model.NoticeCancelled:
		err = u.notifier.SubscriptionCancelled(ctx, user.Email)
	case model.NoticeSuspended:
		err = u.notifier.SubscriptionSuspended(ctx, user.Email)
	case model.NoticePaymentFailed:
		err = u.notifier.PaymentFailed(ctx, user.Email)
	case model.NoticePaymentCompleted:
		err = u.notifier.PaymentCompleted(ctx, user.Email)
	}
	if err != nil {
		u.log.Warn().Err(err).Str("subscription_id", subID).Str("notice", string(notice)).
			Msg("notification delivery failed")
	}
}
