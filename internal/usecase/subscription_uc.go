// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/domain/ports/repository"
	"paypal-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// CreateSubscriptionInput is the validated request for the creation saga.
type CreateSubscriptionInput struct {
	UserID   string
	PlanID   string
	Amount   int64 // minor units per billing cycle
	Currency string
	// InitialPaymentAmount, when set, opens a one-off order linked to the new
	// subscription as part of the saga.
	InitialPaymentAmount *int64
}

// CreateSubscriptionResult pairs the new subscription with the optional
// initial-payment order id.
type CreateSubscriptionResult struct {
	Subscription          *model.Subscription
	InitialPaymentOrderID *string
}

type SubscriptionUseCase interface {
	// Create runs the creation saga: remote agreement, local persist, optional
	// initial payment, notification. Compensates the remote agreement when a
	// later step fails.
	Create(ctx context.Context, in CreateSubscriptionInput) (*CreateSubscriptionResult, error)
	// Get loads a subscription by local id.
	Get(ctx context.Context, id string) (*model.Subscription, error)
	// Cancel performs a user-initiated cancellation: remote first, then local.
	Cancel(ctx context.Context, id string) (*model.Subscription, error)
	// RemoteDetail fetches the gateway's view of the agreement.
	RemoteDetail(ctx context.Context, id string) (*adapter.SubscriptionDetail, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	users    repository.UserRepository
	payments PaymentUseCase
	gateway  adapter.GatewayClient
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	payments PaymentUseCase,
	gateway adapter.GatewayClient,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		subs:     subs,
		users:    users,
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		log:      logger,
	}
}

func (u *subscriptionUC) Create(ctx context.Context, in CreateSubscriptionInput) (*CreateSubscriptionResult, error) {
	if in.UserID == "" || in.PlanID == "" || in.Amount <= 0 {
		return nil, domain.ErrInvalidRequest
	}
	if err := model.ValidateCurrency(in.Currency); err != nil {
		return nil, err
	}
	if in.InitialPaymentAmount != nil && *in.InitialPaymentAmount <= 0 {
		return nil, domain.ErrInvalidRequest
	}

	// Step 1: resolve contact details for the remote subscriber block.
	user, err := u.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	// Step 2: create the remote agreement.
	token := ulid.Make().String()
	remoteID, err := u.gateway.CreateSubscription(ctx, in.PlanID, adapter.Subscriber{
		Email:     user.Email,
		GivenName: user.FirstName,
		Surname:   user.LastName,
	}, token)
	if err != nil {
		metrics.IncGatewayRequest("create_subscription", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("create_subscription", "ok")

	// Step 3: persist the PENDING subscription. From here on a failure must
	// compensate the remote agreement before surfacing.
	now := time.Now()
	sub, err := model.NewSubscription(uuid.NewString(), in.UserID, in.PlanID, in.Amount, in.Currency, remoteID, now)
	if err != nil {
		u.compensate(ctx, remoteID, user.Email, err)
		return nil, err
	}
	if err := u.subs.Create(ctx, nil, sub); err != nil {
		u.log.Error().Err(err).Str("remote_subscription_id", remoteID).Msg("local subscription persist failed")
		u.compensate(ctx, remoteID, user.Email, err)
		return nil, fmt.Errorf("persist subscription: %w", domain.ErrInternalFailure)
	}

	// Step 4: optional initial payment, linked to the new subscription.
	var initialOrderID *string
	if in.InitialPaymentAmount != nil {
		p, err := u.payments.CreateOrder(ctx, CreateOrderInput{
			UserID:         in.UserID,
			Amount:         *in.InitialPaymentAmount,
			Currency:       in.Currency,
			Method:         model.PaymentMethodPayPal,
			SubscriptionID: &sub.ID,
		})
		if err != nil {
			u.compensate(ctx, remoteID, user.Email, err)
			return nil, err
		}
		initialOrderID = p.RemoteOrderID
	}

	// Step 5: best-effort notification; never affects the saga outcome.
	if err := u.notifier.SubscriptionCreated(ctx, user.Email); err != nil {
		u.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("created notification failed")
	}

	metrics.IncSubscriptionTransition(string(model.EventRemoteCreated), "created")
	u.log.Info().
		Str("subscription_id", sub.ID).
		Str("remote_subscription_id", remoteID).
		Msg("subscription created")
	return &CreateSubscriptionResult{Subscription: sub, InitialPaymentOrderID: initialOrderID}, nil
}

// compensate cancels the remote agreement created earlier in the saga and sends
// the failure notification. Compensation failures are logged but never mask the
// original error.
func (u *subscriptionUC) compensate(ctx context.Context, remoteID, email string, cause error) {
	if err := u.gateway.CancelSubscription(ctx, remoteID, "failed to create subscription locally"); err != nil {
		metrics.IncGatewayRequest("cancel_subscription", "error")
		u.log.Error().Err(err).
			Str("remote_subscription_id", remoteID).
			Msg("RECONCILIATION: saga compensation failed, remote subscription may be orphaned")
	} else {
		metrics.IncGatewayRequest("cancel_subscription", "ok")
		u.log.Info().Str("remote_subscription_id", remoteID).Msg("remote subscription compensated")
	}
	if err := u.notifier.SubscriptionFailed(ctx, email, cause.Error()); err != nil {
		u.log.Warn().Err(err).Msg("failure notification failed")
	}
}

func (u *subscriptionUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return u.subs.FindByID(ctx, nil, id)
}

func (u *subscriptionUC) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := u.subs.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	tr, ok := model.NextState(sub.Status, model.EventUserCancel)
	if !ok {
		return nil, fmt.Errorf("subscription %s is %s: %w", sub.ID, sub.Status, domain.ErrInvalidState)
	}

	// Remote cancellation must succeed before the local transition is applied;
	// the provider treats repeated cancels as idempotent.
	if sub.RemoteSubscriptionID != nil {
		if err := u.gateway.CancelSubscription(ctx, *sub.RemoteSubscriptionID, "Cancelled by user"); err != nil {
			metrics.IncGatewayRequest("cancel_subscription", "error")
			return nil, err
		}
		metrics.IncGatewayRequest("cancel_subscription", "ok")
	}

	now := time.Now()
	applied, err := u.subs.ApplyStatus(ctx, nil, sub.ID, repository.StatusChange{
		From:    []model.SubscriptionStatus{sub.Status},
		To:      tr.Next,
		EndDate: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", domain.ErrInternalFailure)
	}
	if !applied {
		// A webhook moved the row first; re-read and report the stored state.
		u.log.Warn().Str("subscription_id", sub.ID).Msg("cancel raced with a concurrent transition")
		return u.subs.FindByID(ctx, nil, sub.ID)
	}
	sub.Status = tr.Next
	sub.EndDate = &now
	sub.UpdatedAt = now
	metrics.IncSubscriptionTransition(string(model.EventUserCancel), "applied")

	if user, uerr := u.users.FindByID(ctx, sub.UserID); uerr == nil {
		if nerr := u.notifier.SubscriptionCancelled(ctx, user.Email); nerr != nil {
			u.log.Warn().Err(nerr).Str("subscription_id", sub.ID).Msg("cancelled notification failed")
		}
	} else {
		u.log.Warn().Err(uerr).Str("subscription_id", sub.ID).Msg("contact lookup for cancellation notice failed")
	}
	u.log.Info().Str("subscription_id", sub.ID).Msg("subscription cancelled")
	return sub, nil
}

func (u *subscriptionUC) RemoteDetail(ctx context.Context, id string) (*adapter.SubscriptionDetail, error) {
	sub, err := u.subs.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if sub.RemoteSubscriptionID == nil {
		return nil, fmt.Errorf("subscription %s has no remote agreement: %w", sub.ID, domain.ErrInvalidState)
	}
	detail, err := u.gateway.GetSubscription(ctx, *sub.RemoteSubscriptionID)
	if err != nil {
		metrics.IncGatewayRequest("get_subscription", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("get_subscription", "ok")
	return detail, nil
}
