package processing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/config"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// minorUnits is the decimal-place convention per currency. Currencies not
// listed here settle in hundredths.
var minorUnits = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CAD": 2,
	"JPY": 0,
}

func MinorUnits(currency string) int32 {
	if n, ok := minorUnits[currency]; ok {
		return n
	}
	return 2
}

// NormalizeCurrency upper-cases a currency code and applies the USD default
// for an omitted one.
func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}

// Validator checks amounts and currencies against the configured bounds.
// It is pure: no side effects, safe to call any number of times.
type Validator struct {
	cfg config.Config
}

func NewValidator(cfg config.Config) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) Validate(amount decimal.Decimal, currency string) error {
	if !v.cfg.Supports(currency) {
		return fmt.Errorf("currency %s not in %s: %w",
			currency, strings.Join(v.cfg.SupportedCurrencies, ","), payment.ErrUnsupportedCurrency)
	}
	if amount.LessThan(v.cfg.MinAmount) || amount.GreaterThan(v.cfg.MaxAmount) {
		return fmt.Errorf("amount %s outside [%s, %s]: %w",
			amount, v.cfg.MinAmount, v.cfg.MaxAmount, payment.ErrInvalidAmount)
	}
	if !amount.Equal(amount.Truncate(MinorUnits(currency))) {
		return fmt.Errorf("amount %s exceeds %s minor-unit precision: %w",
			amount, currency, payment.ErrInvalidAmount)
	}
	return nil
}

// ValidateCreate runs the full create-request validation: amount and currency
// plus the identity fields a payment cannot be booked without.
func (v *Validator) ValidateCreate(req CreateRequest) error {
	if req.MerchantID == "" {
		return fmt.Errorf("missing merchant_id: %w", payment.ErrInvalidRequest)
	}
	if req.CustomerID == "" {
		return fmt.Errorf("missing customer_id: %w", payment.ErrInvalidRequest)
	}
	if !payment.ValidMethod(req.Method) {
		return fmt.Errorf("payment method %q: %w", req.Method, payment.ErrInvalidRequest)
	}
	return v.Validate(req.Amount, req.Currency)
}
