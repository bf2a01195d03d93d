package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/logging"
)

type EventPublisher interface {
	Publish(event.Event) error
}

// Dispatcher polls the outbox and forwards unpublished events. An event is
// marked published only after the publisher accepted it; delivery is
// at-least-once.
type Dispatcher struct {
	Repo         Repository
	EventBus     EventPublisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce()
		}
	}
}

func (d *Dispatcher) DispatchOnce() {
	events, err := d.Repo.FindUnpublished(d.BatchSize)
	if err != nil {
		d.logError("reading outbox", err)
		return
	}

	for _, evt := range events {
		var payload any
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			d.logError("decoding outbox payload "+evt.ID, err)
			continue
		}

		if err := d.EventBus.Publish(event.Event{Type: evt.Type, Payload: payload}); err != nil {
			d.logError("publishing event "+evt.ID, err)
			continue
		}

		if err := d.Repo.MarkPublished(evt.ID); err != nil {
			d.logError("marking event "+evt.ID, err)
		}
	}
}

func (d *Dispatcher) logError(msg string, err error) {
	if d.Logger == nil {
		return
	}
	d.Logger.Error(msg, map[string]any{"error": err.Error()})
}
