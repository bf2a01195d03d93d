package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusProcessing        Status = "PROCESSING"
	StatusCompleted         Status = "COMPLETED"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
	StatusRefunded          Status = "REFUNDED"
	StatusFailed            Status = "FAILED"
)

type Method string

const (
	MethodCreditCard    Method = "credit_card"
	MethodDebitCard     Method = "debit_card"
	MethodBankTransfer  Method = "bank_transfer"
	MethodDigitalWallet Method = "digital_wallet"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodDigitalWallet:
		return true
	}
	return false
}

type Payment struct {
	ID             string
	MerchantID     string
	CustomerID     string
	Amount         decimal.Decimal
	Currency       string
	Method         Method
	Status         Status
	RefundedAmount decimal.Decimal
	Description    string
	CardLastFour   string
	CardType       string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ProcessedAt    *time.Time
}

// RemainingBalance is the maximum amount still refundable.
func (p *Payment) RemainingBalance() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

func (p *Payment) Clone() *Payment {
	cp := *p
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		cp.ProcessedAt = &t
	}
	return &cp
}

// Filter narrows a payment listing. Zero values mean "any".
type Filter struct {
	MerchantID string
	CustomerID string
	Status     Status
	Limit      int
	Offset     int
}

func (f Filter) Matches(p *Payment) bool {
	if f.MerchantID != "" && p.MerchantID != f.MerchantID {
		return false
	}
	if f.CustomerID != "" && p.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}
