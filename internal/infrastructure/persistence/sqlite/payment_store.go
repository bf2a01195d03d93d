package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

const paymentColumns = `id, merchant_id, customer_id, amount, currency, method,
	status, refunded_amount, description, card_last_four, card_type,
	version, created_at, updated_at, processed_at`

type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	return scanPayment(row)
}

func (s *PaymentStore) List(ctx context.Context, filter payment.Filter) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []any

	if filter.MerchantID != "" {
		query += ` AND merchant_id = ?`
		args = append(args, filter.MerchantID)
	}
	if filter.CustomerID != "" {
		query += ` AND customer_id = ?`
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w (%w)", payment.ErrPersistence, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MerchantID, p.CustomerID, p.Amount.String(), p.Currency,
		string(p.Method), string(p.Status), p.RefundedAmount.String(),
		p.Description, p.CardLastFour, p.CardType,
		p.Version, p.CreatedAt, p.UpdatedAt, nullableTime(p.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting payment %s: %w (%w)", p.ID, payment.ErrPersistence, err)
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w (%w)", payment.ErrPersistence, err)
	}
	return nil
}

func (s *PaymentStore) UpdateAndCommit(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w (%w)", payment.ErrPersistence, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
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

	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, refunded_amount = ?, version = ?,
			updated_at = ?, processed_at = ?
		 WHERE id = ? AND version = ?`,
		string(p.Status), p.RefundedAmount.String(), p.Version,
		p.UpdatedAt, nullableTime(p.ProcessedAt),
		id, readVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("updating payment %s: %w (%w)", id, payment.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating payment %s: %w (%w)", id, payment.ErrPersistence, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("payment %s moved past version %d: %w", id, readVersion, payment.ErrConflict)
	}

	if err := insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w (%w)", payment.ErrPersistence, err)
	}
	return p, nil
}

func (s *PaymentStore) ListByPayment(ctx context.Context, paymentID string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payment_id, entry_type, amount, resulting_status, reason, created_at
		 FROM transaction_entries
		 WHERE payment_id = ?
		 ORDER BY rowid`,
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

func insertEntry(ctx context.Context, tx *sql.Tx, entry *ledger.Entry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transaction_entries
		 (id, payment_id, entry_type, amount, resulting_status, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.PaymentID, string(entry.Type), entry.Amount.String(),
		string(entry.ResultingStatus), entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending entry %s: %w (%w)", entry.ID, payment.ErrPersistence, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var (
		p           payment.Payment
		amountStr   string
		refundedStr string
		method      string
		status      string
		processedAt sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.MerchantID, &p.CustomerID, &amountStr, &p.Currency, &method,
		&status, &refundedStr, &p.Description, &p.CardLastFour, &p.CardType,
		&p.Version, &p.CreatedAt, &p.UpdatedAt, &processedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	return &p, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
