package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// Replay folds an ordered entry sequence back into the payment's current
// status and refunded total. A well-formed ledger replays without error and
// matches the stored payment exactly.
func Replay(entries []Entry) (payment.Status, decimal.Decimal, error) {
	status := payment.Status("")
	refunded := decimal.Zero

	for i, e := range entries {
		switch e.Type {
		case TypeCreate:
			if i != 0 {
				return "", decimal.Zero, fmt.Errorf("ledger: CREATE entry at position %d", i)
			}
		case TypeProcess:
			if status != payment.StatusCreated {
				return "", decimal.Zero, fmt.Errorf("ledger: PROCESS entry after status %s", status)
			}
		case TypeRefund:
			if !status.Refundable() {
				return "", decimal.Zero, fmt.Errorf("ledger: REFUND entry after status %s", status)
			}
			refunded = refunded.Add(e.Amount)
		default:
			return "", decimal.Zero, fmt.Errorf("ledger: unknown entry type %q", e.Type)
		}
		status = e.ResultingStatus
	}

	return status, refunded, nil
}
