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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, amount, currency, status, remote_subscription_id, start_date, end_date, last_payment_date, created_at, updated_at`

func (r *subscriptionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, amount, currency, status, remote_subscription_id, start_date, end_date, last_payment_date, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.Amount, s.Currency, s.Status,
		s.RemoteSubscriptionID, s.StartDate, s.EndDate, s.LastPaymentDate, s.CreatedAt, s.UpdatedAt)
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

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByRemoteID(ctx context.Context, tx repository.Tx, remoteSubscriptionID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE remote_subscription_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", remoteSubscriptionID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// ApplyStatus is the transition-table-checked conditional write: the status
// column only changes while it is still one of change.From, so a concurrent
// delivery that got there first turns this into a reported no-op rather than a
// lost update.
func (r *subscriptionRepo) ApplyStatus(ctx context.Context, tx repository.Tx, id string, change repository.StatusChange) (bool, error) {
	const q = `
UPDATE subscriptions SET
  status=$2,
  end_date=COALESCE($3, end_date),
  last_payment_date=COALESCE($4, last_payment_date),
  updated_at=NOW()
WHERE id=$1 AND status=ANY($5);`

	from := make([]string, 0, len(change.From))
	for _, s := range change.From {
		from = append(from, string(s))
	}
	tag, err := execSQL(ctx, r.pool, tx, q, id, change.To, change.EndDate, change.LastPaymentDate, from)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Amount, &s.Currency, &s.Status,
		&s.RemoteSubscriptionID, &s.StartDate, &s.EndDate, &s.LastPaymentDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
