package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// PaymentStore keeps payments and their ledger in process memory. Commits
// take the write lock, so a payment write and its ledger append are atomic;
// the version check keeps concurrent read-modify-write cycles honest.
type PaymentStore struct {
	mu       sync.RWMutex
	payments map[string]*payment.Payment
	entries  map[string][]ledger.Entry
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		payments: make(map[string]*payment.Payment),
		entries:  make(map[string][]ledger.Entry),
	}
}

func (s *PaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, payment.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *PaymentStore) List(ctx context.Context, filter payment.Filter) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*payment.Payment
	for _, p := range s.payments {
		if filter.Matches(p) {
			matched = append(matched, p.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *PaymentStore) CreateAndCommit(ctx context.Context, p *payment.Payment, entry *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists: %w", p.ID, payment.ErrConflict)
	}

	s.payments[p.ID] = p.Clone()
	s.entries[p.ID] = append(s.entries[p.ID], *entry)
	return nil
}

func (s *PaymentStore) UpdateAndCommit(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error) {
	// Snapshot under the read lock, mutate unlocked, commit under the write
	// lock with a version check. Another writer landing in between loses us
	// the commit, never the invariants.
	s.mu.RLock()
	cur, ok := s.payments[id]
	var snapshot *payment.Payment
	if ok {
		snapshot = cur.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, payment.ErrNotFound)
	}

	entry, err := mutate(snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.Version++

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, payment.ErrNotFound)
	}
	if latest.Version != snapshot.Version-1 {
		return nil, fmt.Errorf("payment %s at version %d, read %d: %w",
			id, latest.Version, snapshot.Version-1, payment.ErrConflict)
	}

	s.payments[id] = snapshot.Clone()
	s.entries[id] = append(s.entries[id], *entry)
	return snapshot, nil
}

func (s *PaymentStore) ListByPayment(ctx context.Context, paymentID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[paymentID]
	out := make([]ledger.Entry, len(entries))
	copy(out, entries)
	return out, nil
}
