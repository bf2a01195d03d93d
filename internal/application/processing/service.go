package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/metrics"
)

const conflictRetryDelay = 5 * time.Millisecond

type Service struct {
	Store     Store
	Validator *Validator
	Gateway   Gateway
	Recorder  contracts.EventRecorder
	Logger    logging.Logger
	Metrics   *metrics.Counters

	// ConflictRetries bounds the internal re-read loop on ErrConflict.
	// Zero means conflicts surface to the caller immediately.
	ConflictRetries uint64
}

type CreateRequest struct {
	MerchantID   string
	CustomerID   string
	Amount       decimal.Decimal
	Currency     string
	Method       payment.Method
	Description  string
	CardLastFour string
	CardType     string
}

func (s *Service) CreatePayment(ctx context.Context, req CreateRequest) (*payment.Payment, error) {
	req.Currency = NormalizeCurrency(req.Currency)

	if err := s.Validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &payment.Payment{
		ID:             uuid.NewString(),
		MerchantID:     req.MerchantID,
		CustomerID:     req.CustomerID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         req.Method,
		Status:         payment.StatusCreated,
		RefundedAmount: decimal.Zero,
		Description:    req.Description,
		CardLastFour:   req.CardLastFour,
		CardType:       req.CardType,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	entry := &ledger.Entry{
		ID:              uuid.NewString(),
		PaymentID:       p.ID,
		Type:            ledger.TypeCreate,
		Amount:          p.Amount,
		ResultingStatus: payment.StatusCreated,
		CreatedAt:       now,
	}

	if err := s.Store.CreateAndCommit(ctx, p, entry); err != nil {
		return nil, err
	}

	s.Metrics.IncCreated()
	s.Logger.Info("payment created", map[string]any{
		"payment-id": p.ID,
		"amount":     p.Amount.String(),
		"currency":   p.Currency,
	})
	s.record(event.Event{
		Type: event.PaymentCreated,
		Payload: event.PaymentCreatedPayload{
			PaymentID:  p.ID,
			MerchantID: p.MerchantID,
			CustomerID: p.CustomerID,
			Amount:     p.Amount.String(),
			Currency:   p.Currency,
		},
	})

	return p, nil
}

// ProcessPayment captures a CREATED payment. The gateway decides the outcome:
// approval lands on COMPLETED, a decline on FAILED. Exactly one PROCESS entry
// is appended either way.
func (s *Service) ProcessPayment(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.update(ctx, id, func(p *payment.Payment) (*ledger.Entry, error) {
		if err := payment.ValidateTransition(p.Status, payment.StatusCompleted); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		if s.Gateway.Authorize(ctx, p) {
			p.Status = payment.StatusCompleted
			p.ProcessedAt = &now
		} else {
			p.Status = payment.StatusFailed
		}
		p.UpdatedAt = now

		return &ledger.Entry{
			ID:              uuid.NewString(),
			PaymentID:       p.ID,
			Type:            ledger.TypeProcess,
			Amount:          p.Amount,
			ResultingStatus: p.Status,
			CreatedAt:       now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncProcessed()

	if p.Status == payment.StatusCompleted {
		s.Metrics.IncSucceeded()
		s.Logger.Info("payment captured", map[string]any{
			"payment-id": p.ID,
			"amount":     p.Amount.String(),
		})
		s.record(event.Event{
			Type: event.PaymentCaptured,
			Payload: event.PaymentCapturedPayload{
				PaymentID: p.ID,
				Amount:    p.Amount.String(),
				Currency:  p.Currency,
			},
		})
	} else {
		s.Metrics.IncFailed()
		s.Logger.Error("payment declined", map[string]any{
			"payment-id": p.ID,
			"amount":     p.Amount.String(),
		})
		s.record(event.Event{
			Type: event.PaymentFailed,
			Payload: event.PaymentFailedPayload{
				PaymentID: p.ID,
				Reason:    "gateway declined",
			},
		})
	}

	return p, nil
}

// RefundPayment issues a refund against the remaining balance. Refunding the
// whole balance lands on REFUNDED, anything less on PARTIALLY_REFUNDED. The
// guard runs against freshly read state on every attempt.
func (s *Service) RefundPayment(ctx context.Context, id string, amount decimal.Decimal, reason string) (*payment.Payment, error) {
	p, err := s.update(ctx, id, func(p *payment.Payment) (*ledger.Entry, error) {
		if !p.Status.Refundable() {
			return nil, payment.ValidateTransition(p.Status, payment.StatusRefunded)
		}

		remaining := p.RemainingBalance()
		if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(remaining) {
			return nil, fmt.Errorf("refund %s with %s available: %w",
				amount, remaining, payment.ErrInvalidRefundAmount)
		}

		now := time.Now().UTC()
		p.RefundedAmount = p.RefundedAmount.Add(amount)
		if p.RefundedAmount.Equal(p.Amount) {
			p.Status = payment.StatusRefunded
		} else {
			p.Status = payment.StatusPartiallyRefunded
		}
		p.UpdatedAt = now

		return &ledger.Entry{
			ID:              uuid.NewString(),
			PaymentID:       p.ID,
			Type:            ledger.TypeRefund,
			Amount:          amount,
			ResultingStatus: p.Status,
			Reason:          reason,
			CreatedAt:       now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.IncRefunded()
	s.Logger.Info("payment refunded", map[string]any{
		"payment-id":      p.ID,
		"refund-amount":   amount.String(),
		"refunded-amount": p.RefundedAmount.String(),
		"status":          string(p.Status),
	})
	s.record(event.Event{
		Type: event.PaymentRefunded,
		Payload: event.PaymentRefundedPayload{
			PaymentID:      p.ID,
			Amount:         amount.String(),
			RefundedAmount: p.RefundedAmount.String(),
			Full:           p.Status == payment.StatusRefunded,
		},
	})

	return p, nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, filter payment.Filter) ([]*payment.Payment, error) {
	return s.Store.List(ctx, filter)
}

func (s *Service) ListTransactions(ctx context.Context, id string) ([]ledger.Entry, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListByPayment(ctx, id)
}

// update drives one read-modify-write cycle against the store, retrying a
// bounded number of times when an optimistic commit loses the race.
func (s *Service) update(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error) {
	var updated *payment.Payment

	backoff := retry.WithMaxRetries(s.ConflictRetries, retry.NewConstant(conflictRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := s.Store.UpdateAndCommit(ctx, id, mutate)
		if err != nil {
			if errors.Is(err, payment.ErrConflict) {
				s.Metrics.IncConflicts()
				return retry.RetryableError(err)
			}
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) record(evt event.Event) {
	if s.Recorder == nil {
		return
	}
	if err := s.Recorder.Record(evt); err != nil {
		s.Logger.Error("recording event", map[string]any{
			"event-type": string(evt.Type),
			"error":      err.Error(),
		})
	}
}
