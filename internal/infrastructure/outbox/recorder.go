package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
)

// Recorder persists events for later dispatch instead of publishing inline,
// so a broker outage never fails the payment operation that emitted them.
type Recorder struct {
	Repo Repository
}

func (r *Recorder) Record(evt event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return err
	}

	return r.Repo.Save(OutboxEvent{
		ID:        uuid.NewString(),
		Type:      evt.Type,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
}
