package sqlite

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{

		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			refunded_amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			card_last_four TEXT NOT NULL DEFAULT '',
			card_type TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			processed_at DATETIME
		);`,

		`CREATE INDEX IF NOT EXISTS idx_payments_merchant_customer
			ON payments (merchant_id, customer_id);`,

		`CREATE INDEX IF NOT EXISTS idx_payments_status_created
			ON payments (status, created_at);`,

		`CREATE TABLE IF NOT EXISTS transaction_entries (
			id TEXT PRIMARY KEY,
			payment_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			resulting_status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,

		`CREATE INDEX IF NOT EXISTS idx_entries_payment
			ON transaction_entries (payment_id);`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			published_at DATETIME
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
