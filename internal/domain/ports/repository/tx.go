package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres); repositories must
// gracefully accept nil (non-transactional path).
type Tx interface{}

// TransactionManager runs a function inside a database transaction, passing the
// underlying handle through `tx`. Keeping the handle opaque lets use cases stay
// free of storage types while repositories still get SELECT ... FOR UPDATE and
// tx-bound Exec/Query when they need them.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
