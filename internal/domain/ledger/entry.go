package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

type Type string

const (
	TypeCreate  Type = "CREATE"
	TypeProcess Type = "PROCESS"
	TypeRefund  Type = "REFUND"
)

// Entry is one immutable record of the transaction ledger. Entries are
// append-only; there is no update or delete.
type Entry struct {
	ID              string
	PaymentID       string
	Type            Type
	Amount          decimal.Decimal
	ResultingStatus payment.Status
	Reason          string
	CreatedAt       time.Time
}
