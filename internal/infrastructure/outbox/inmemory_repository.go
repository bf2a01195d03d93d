package outbox

import (
	"fmt"
	"sync"
	"time"
)

// InMemoryRepository backs the outbox when the memory or postgres record
// store is in use and no durable outbox table exists alongside it.
type InMemoryRepository struct {
	mu     sync.Mutex
	events []OutboxEvent
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Save(evt OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, evt)
	return nil
}

func (r *InMemoryRepository) FindUnpublished(limit int) ([]OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []OutboxEvent
	for _, evt := range r.events {
		if evt.Published() {
			continue
		}
		out = append(out, evt)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *InMemoryRepository) MarkPublished(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		if r.events[i].ID == id {
			now := time.Now().UTC()
			r.events[i].PublishedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}
