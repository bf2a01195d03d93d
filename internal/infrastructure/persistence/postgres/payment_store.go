package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// Amounts travel as strings over the wire: NUMERIC columns are cast to text
// on the way out and pgx encodes decimal strings on the way in, which keeps
// the store free of numeric codec plumbing.
const paymentColumns = `id, merchant_id, customer_id, amount::text, currency, method,
	status, refunded_amount::text, description, card_last_four, card_type,
	version, created_at, updated_at, processed_at`

type PaymentStore struct {
	pool *pgxpool.Pool
}

func NewPaymentStore(pool *pgxpool.Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

func (s *PaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *PaymentStore) List(ctx context.Context, filter payment.Filter) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE TRUE`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.MerchantID != "" {
		query += ` AND merchant_id = ` + arg(filter.MerchantID)
	}
	if filter.CustomerID != "" {
		query += ` AND customer_id = ` + arg(filter.CustomerID)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w (%w)", payment.ErrPersistence, err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PaymentStore) CreateAndCommit(ctx context.Context, p *payment.Payment, entry *ledger.Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w (%w)", payment.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO payments
		 (id, merchant_id, customer_id, amount, currency, method, status,
		  refunded_amount, description, card_last_four, card_type, version,
		  created_at, updated_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.MerchantID, p.CustomerID, p.Amount.String(), p.Currency,
		string(p.Method), string(p.Status), p.RefundedAmount.String(),
		p.Description, p.CardLastFour, p.CardType, p.Version,
		p.CreatedAt, p.UpdatedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment %s: %w (%w)", p.ID, payment.ErrPersistence, err)
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w (%w)", payment.ErrPersistence, err)
	}
	return nil
}

func (s *PaymentStore) UpdateAndCommit(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w (%w)", payment.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	readVersion := p.Version

	entry, err := mutate(p)
	if err != nil {
		return nil, err
	}
	p.Version = readVersion + 1

	tag, err := tx.Exec(ctx,
		`UPDATE payments SET status = $1, refunded_amount = $2, version = $3,
			updated_at = $4, processed_at = $5
		 WHERE id = $6 AND version = $7`,
		string(p.Status), p.RefundedAmount.String(), p.Version,
		p.UpdatedAt, p.ProcessedAt,
		id, readVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("updating payment %s: %w (%w)", id, payment.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("payment %s moved past version %d: %w", id, readVersion, payment.ErrConflict)
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w (%w)", payment.ErrPersistence, err)
	}
	return p, nil
}

func (s *PaymentStore) ListByPayment(ctx context.Context, paymentID string) ([]ledger.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, payment_id, entry_type, amount::text, resulting_status, reason, created_at
		 FROM transaction_entries
		 WHERE payment_id = $1
		 ORDER BY seq`,
		paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entries for %s: %w (%w)", paymentID, payment.ErrPersistence, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e         ledger.Entry
			amountStr string
			entryType string
			statusStr string
		)
		if err := rows.Scan(&e.ID, &e.PaymentID, &entryType, &amountStr, &statusStr, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w (%w)", payment.ErrPersistence, err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("entry %s amount %q: %w", e.ID, amountStr, payment.ErrPersistence)
		}
		e.Type = ledger.Type(entryType)
		e.Amount = amount
		e.ResultingStatus = payment.Status(statusStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func insertEntry(ctx context.Context, tx pgx.Tx, entry *ledger.Entry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transaction_entries
		 (id, payment_id, entry_type, amount, resulting_status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.PaymentID, string(entry.Type), entry.Amount.String(),
		string(entry.ResultingStatus), entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending entry %s: %w (%w)", entry.ID, payment.ErrPersistence, err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var (
		p           payment.Payment
		amountStr   string
		refundedStr string
		method      string
		status      string
	)

	err := row.Scan(
		&p.ID, &p.MerchantID, &p.CustomerID, &amountStr, &p.Currency, &method,
		&status, &refundedStr, &p.Description, &p.CardLastFour, &p.CardType,
		&p.Version, &p.CreatedAt, &p.UpdatedAt, &p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("scanning payment: %w (%w)", payment.ErrPersistence, err)
	}

	p.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("payment %s amount %q: %w", p.ID, amountStr, payment.ErrPersistence)
	}
	p.RefundedAmount, err = decimal.NewFromString(refundedStr)
	if err != nil {
		return nil, fmt.Errorf("payment %s refunded_amount %q: %w", p.ID, refundedStr, payment.ErrPersistence)
	}
	p.Method = payment.Method(method)
	p.Status = payment.Status(status)
	return &p, nil
}
