package outbox

import (
	"time"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
)

type OutboxEvent struct {
	ID          string
	Type        event.Type
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

func (e OutboxEvent) Published() bool {
	return e.PublishedAt != nil
}

type Repository interface {
	Save(OutboxEvent) error
	FindUnpublished(limit int) ([]OutboxEvent, error)
	MarkPublished(id string) error
}
