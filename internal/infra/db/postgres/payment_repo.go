package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, subscription_id, amount, currency, status, remote_order_id, remote_transaction_id, payment_method, created_at, updated_at`

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, user_id, subscription_id, amount, currency, status, remote_order_id, remote_transaction_id, payment_method, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.SubscriptionID, p.Amount, p.Currency, p.Status,
		p.RemoteOrderID, p.RemoteTransactionID, p.PaymentMethod, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByRemoteOrderID(ctx context.Context, tx repository.Tx, remoteOrderID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE remote_order_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", remoteOrderID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

// UpdateStatus finalizes a payment. The WHERE clause keeps the status monotonic:
// only a PENDING row can move, so a duplicate finalizer reports ok=false.
func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, to model.PaymentStatus) (bool, error) {
	const q = `UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1 AND status=$3;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, to, model.PaymentStatusPending)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.Amount, &p.Currency, &p.Status,
		&p.RemoteOrderID, &p.RemoteTransactionID, &p.PaymentMethod, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
