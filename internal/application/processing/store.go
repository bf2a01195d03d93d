package processing

import (
	"context"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// Store is the record store the service runs against. Implementations must
// commit the payment write and the ledger append atomically: both become
// durable or neither does.
type Store interface {
	Get(ctx context.Context, id string) (*payment.Payment, error)
	List(ctx context.Context, filter payment.Filter) ([]*payment.Payment, error)

	// CreateAndCommit persists a new payment together with its CREATE entry.
	CreateAndCommit(ctx context.Context, p *payment.Payment, entry *ledger.Entry) error

	// UpdateAndCommit re-reads the payment, hands a copy to mutate and
	// commits the mutated payment plus the returned entry under an
	// optimistic version check. A concurrent writer in between makes the
	// commit fail with payment.ErrConflict; the caller retries against
	// fresh state.
	UpdateAndCommit(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error)

	// ListByPayment returns the payment's ledger entries in append order.
	ListByPayment(ctx context.Context, paymentID string) ([]ledger.Entry, error)
}
