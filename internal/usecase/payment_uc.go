// File: internal/usecase/payment_uc.go
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
var _ PaymentUseCase = (*paymentUC)(nil)

// CreateOrderInput is the validated request for opening a one-off charge.
type CreateOrderInput struct {
	UserID         string
	Amount         int64 // minor units
	Currency       string
	Method         model.PaymentMethod
	Card           *adapter.CardDetails
	Billing        *adapter.BillingAddress
	SubscriptionID *string
}

type PaymentUseCase interface {
	// CreateOrder opens a gateway order and persists the PENDING payment row.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Payment, error)
	// GetPayment loads a payment by local id.
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	// Capture captures the remote order and finalizes the payment status.
	Capture(ctx context.Context, id string) (*model.Payment, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	gateway  adapter.GatewayClient
	log      *zerolog.Logger
}

func NewPaymentUseCase(payments repository.PaymentRepository, gateway adapter.GatewayClient, logger *zerolog.Logger) *paymentUC {
	return &paymentUC{payments: payments, gateway: gateway, log: logger}
}

func (u *paymentUC) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Payment, error) {
	if err := validateCreateOrder(in); err != nil {
		return nil, err
	}

	spec := adapter.OrderSpec{
		Amount:   in.Amount,
		Currency: in.Currency,
		Card:     in.Card,
		Billing:  in.Billing,
	}
	// Fresh idempotency token per logical order: a transport-level retry of this
	// request cannot open a second remote order.
	token := ulid.Make().String()
	remoteOrderID, err := u.gateway.CreateOrder(ctx, spec, token)
	if err != nil {
		metrics.IncGatewayRequest("create_order", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("create_order", "ok")

	now := time.Now()
	p := &model.Payment{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		SubscriptionID: in.SubscriptionID,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Status:         model.PaymentStatusPending,
		RemoteOrderID:  &remoteOrderID,
		PaymentMethod:  in.Method,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.payments.Create(ctx, nil, p); err != nil {
		// The remote order already exists; it is left open for out-of-band
		// reconciliation (the provider expires unclaimed orders server-side).
		u.log.Error().Err(err).
			Str("remote_order_id", remoteOrderID).
			Str("user_id", in.UserID).
			Msg("RECONCILIATION: remote order created but local payment persist failed")
		return nil, fmt.Errorf("persist pending payment: %w", domain.ErrInternalFailure)
	}
	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().Str("payment_id", p.ID).Str("remote_order_id", remoteOrderID).Msg("payment created")
	return p, nil
}

func (u *paymentUC) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return u.payments.FindByID(ctx, nil, id)
}

func (u *paymentUC) Capture(ctx context.Context, id string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	// Capture is not idempotent at the gateway: once a payment is terminal it
	// must never be re-captured.
	if p.Status.Terminal() {
		return nil, fmt.Errorf("payment %s is %s: %w", p.ID, p.Status, domain.ErrInvalidState)
	}
	if p.RemoteOrderID == nil {
		return nil, fmt.Errorf("payment %s has no remote order: %w", p.ID, domain.ErrInvalidState)
	}

	remoteStatus, err := u.gateway.CaptureOrder(ctx, *p.RemoteOrderID)
	if err != nil {
		metrics.IncGatewayRequest("capture_order", "error")
		return nil, err
	}
	metrics.IncGatewayRequest("capture_order", "ok")

	next := model.PaymentStatusFailed
	if remoteStatus == "COMPLETED" {
		next = model.PaymentStatusCompleted
	}
	ok, err := u.payments.UpdateStatus(ctx, nil, p.ID, next)
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("capture result persist failed")
		return nil, fmt.Errorf("persist capture result: %w", domain.ErrInternalFailure)
	}
	if !ok {
		// A concurrent webhook finalized this payment first; the stored row wins.
		u.log.Warn().Str("payment_id", p.ID).Msg("capture raced with another finalizer")
		return u.payments.FindByID(ctx, nil, p.ID)
	}
	p.Status = next
	p.UpdatedAt = time.Now()
	metrics.IncPayment(string(next))
	if next == model.PaymentStatusCompleted {
		metrics.AddPaymentRevenue(p.Currency, p.Amount)
	}
	u.log.Info().Str("payment_id", p.ID).Str("status", string(next)).Msg("payment captured")
	return p, nil
}

func validateCreateOrder(in CreateOrderInput) error {
	if in.UserID == "" || in.Amount <= 0 {
		return domain.ErrInvalidRequest
	}
	if err := model.ValidateCurrency(in.Currency); err != nil {
		return err
	}
	switch in.Method {
	case model.PaymentMethodPayPal:
		return nil
	case model.PaymentMethodCard:
		if in.Card == nil {
			return fmt.Errorf("card details are required for card payments: %w", domain.ErrInvalidRequest)
		}
		if in.Billing == nil {
			return fmt.Errorf("billing address is required for card payments: %w", domain.ErrInvalidRequest)
		}
		return nil
	default:
		return fmt.Errorf("unknown payment method %q: %w", in.Method, domain.ErrInvalidRequest)
	}
}
