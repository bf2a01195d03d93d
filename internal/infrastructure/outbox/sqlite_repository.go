package outbox

import (
	"database/sql"
	"time"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(evt OutboxEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO outbox_events (id, event_type, payload, created_at, published_at)
		VALUES (?, ?, ?, ?, NULL)
	`,
		evt.ID,
		string(evt.Type),
		evt.Payload,
		evt.CreatedAt,
	)
	return err
}

func (r *SQLiteRepository) FindUnpublished(limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, event_type, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var (
			evt       OutboxEvent
			eventType string
		)
		if err := rows.Scan(&evt.ID, &eventType, &evt.Payload, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.Type = event.Type(eventType)
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *SQLiteRepository) MarkPublished(id string) error {
	_, err := r.db.Exec(`
		UPDATE outbox_events
		SET published_at = ?
		WHERE id = ?
	`, time.Now().UTC(), id)

	return err
}
