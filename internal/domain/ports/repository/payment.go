package repository

import (
	"context"

	"paypal-billing/internal/domain/model"
)

// PaymentRepository persists payment records. Payments are never deleted.
type PaymentRepository interface {
	// Create inserts a new payment. A duplicate remote transaction id yields
	// domain.ErrAlreadyExists so redelivered payment webhooks cannot double-record.
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByRemoteOrderID(ctx context.Context, tx Tx, remoteOrderID string) (*model.Payment, error)
	// UpdateStatus moves a payment out of PENDING. The write is conditional on the
	// current status still being PENDING; a stale write reports false.
	UpdateStatus(ctx context.Context, tx Tx, id string, to model.PaymentStatus) (bool, error)
}
