package processing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_processor-go/internal/application/processing"
	"github.com/rcarvalho-pb/payment_processor-go/internal/config"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/persistence/inmemory"
)

type fakeGateway struct {
	authorizeFn func(context.Context, *payment.Payment) bool
}

func (f *fakeGateway) Authorize(ctx context.Context, p *payment.Payment) bool {
	return f.authorizeFn(ctx, p)
}

func approvingGateway() *fakeGateway {
	return &fakeGateway{authorizeFn: func(context.Context, *payment.Payment) bool { return true }}
}

func decliningGateway() *fakeGateway {
	return &fakeGateway{authorizeFn: func(context.Context, *payment.Payment) bool { return false }}
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []event.Event
}

func (f *fakeRecorder) Record(evt event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, evt)
	return nil
}

func (f *fakeRecorder) types() []event.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.Type
	for _, evt := range f.recorded {
		out = append(out, evt.Type)
	}
	return out
}

func newService(store processing.Store, gateway processing.Gateway) (*processing.Service, *fakeRecorder, *metrics.Counters) {
	recorder := &fakeRecorder{}
	counters := metrics.NewCounters(prometheus.NewRegistry())
	svc := &processing.Service{
		Store:           store,
		Validator:       processing.NewValidator(config.Default()),
		Gateway:         gateway,
		Recorder:        recorder,
		Logger:          logging.Noop{},
		Metrics:         counters,
		ConflictRetries: 3,
	}
	return svc, recorder, counters
}

func createTestPayment(t *testing.T, svc *processing.Service, amount string) *payment.Payment {
	t.Helper()
	p, err := svc.CreatePayment(context.Background(), processing.CreateRequest{
		MerchantID: "merchant-1",
		CustomerID: "customer-1",
		Amount:     dec(amount),
		Currency:   "USD",
		Method:     payment.MethodCreditCard,
	})
	require.NoError(t, err)
	return p
}

func TestCreatePayment_PersistsPaymentAndLedgerEntry(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, recorder, counters := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")

	if p.Status != payment.StatusCreated {
		t.Errorf("expected status CREATED, got %s", p.Status)
	}
	if p.Version != 1 {
		t.Errorf("expected version 1, got %d", p.Version)
	}
	if !p.RefundedAmount.IsZero() {
		t.Errorf("expected zero refunded amount, got %s", p.RefundedAmount)
	}

	entries, err := store.ListByPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.TypeCreate, entries[0].Type)
	require.Equal(t, payment.StatusCreated, entries[0].ResultingStatus)
	require.True(t, entries[0].Amount.Equal(p.Amount))

	require.Equal(t, []event.Type{event.PaymentCreated}, recorder.types())
	require.Equal(t, 1.0, testutil.ToFloat64(counters.PaymentsCreated))
}

func TestCreatePayment_NormalizesCurrency(t *testing.T) {
	svc, _, _ := newService(inmemory.NewPaymentStore(), approvingGateway())

	p, err := svc.CreatePayment(context.Background(), processing.CreateRequest{
		MerchantID: "merchant-1",
		CustomerID: "customer-1",
		Amount:     dec("10.00"),
		Currency:   "usd",
		Method:     payment.MethodDebitCard,
	})
	require.NoError(t, err)
	require.Equal(t, "USD", p.Currency)
}

func TestCreatePayment_RejectsInvalidRequests_WithoutPersisting(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, recorder, _ := newService(store, approvingGateway())

	tests := []struct {
		name    string
		req     processing.CreateRequest
		wantErr error
	}{
		{
			name: "amount above max",
			req: processing.CreateRequest{
				MerchantID: "m", CustomerID: "c",
				Amount: dec("10000.01"), Currency: "USD", Method: payment.MethodCreditCard,
			},
			wantErr: payment.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req: processing.CreateRequest{
				MerchantID: "m", CustomerID: "c",
				Amount: dec("-10.00"), Currency: "USD", Method: payment.MethodCreditCard,
			},
			wantErr: payment.ErrInvalidAmount,
		},
		{
			name: "unsupported currency",
			req: processing.CreateRequest{
				MerchantID: "m", CustomerID: "c",
				Amount: dec("10.00"), Currency: "BRL", Method: payment.MethodCreditCard,
			},
			wantErr: payment.ErrUnsupportedCurrency,
		},
		{
			name: "missing merchant",
			req: processing.CreateRequest{
				CustomerID: "c",
				Amount:     dec("10.00"), Currency: "USD", Method: payment.MethodCreditCard,
			},
			wantErr: payment.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePayment(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	payments, err := store.List(context.Background(), payment.Filter{})
	require.NoError(t, err)
	require.Empty(t, payments, "rejected requests must not persist")
	require.Empty(t, recorder.types())
}

func TestProcessPayment_CapturesCreatedPayment(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, recorder, counters := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")

	processed, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCompleted, processed.Status)
	require.NotNil(t, processed.ProcessedAt)

	entries, err := store.ListByPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, ledger.TypeProcess, entries[1].Type)
	require.Equal(t, payment.StatusCompleted, entries[1].ResultingStatus)

	require.Equal(t, []event.Type{event.PaymentCreated, event.PaymentCaptured}, recorder.types())
	require.Equal(t, 1.0, testutil.ToFloat64(counters.PaymentsProcessed))
	require.Equal(t, 1.0, testutil.ToFloat64(counters.PaymentsSucceeded))
	require.Equal(t, 0.0, testutil.ToFloat64(counters.PaymentsFailed))
}

func TestProcessPayment_SecondCallRejected_NoDuplicateEntry(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, _ := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")

	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = svc.ProcessPayment(context.Background(), p.ID)
	require.ErrorIs(t, err, payment.ErrInvalidStateTransition)

	entries, err := store.ListByPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestProcessPayment_GatewayDecline_MovesToFailed(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, recorder, counters := newService(store, decliningGateway())

	p := createTestPayment(t, svc, "100.00")

	processed, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, processed.Status)
	require.Nil(t, processed.ProcessedAt)

	entries, err := store.ListByPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, payment.StatusFailed, entries[1].ResultingStatus)

	require.Equal(t, []event.Type{event.PaymentCreated, event.PaymentFailed}, recorder.types())
	require.Equal(t, 1.0, testutil.ToFloat64(counters.PaymentsFailed))

	// FAILED is terminal.
	_, err = svc.ProcessPayment(context.Background(), p.ID)
	require.ErrorIs(t, err, payment.ErrInvalidStateTransition)
	_, err = svc.RefundPayment(context.Background(), p.ID, dec("10.00"), "")
	require.ErrorIs(t, err, payment.ErrInvalidStateTransition)
}

func TestProcessPayment_UnknownID(t *testing.T) {
	svc, _, _ := newService(inmemory.NewPaymentStore(), approvingGateway())

	_, err := svc.ProcessPayment(context.Background(), "nope")
	require.ErrorIs(t, err, payment.ErrNotFound)
}

func TestRefundPayment_PartialThenFull(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, counters := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")
	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)

	refunded, err := svc.RefundPayment(context.Background(), p.ID, dec("40.00"), "customer request")
	require.NoError(t, err)
	require.Equal(t, payment.StatusPartiallyRefunded, refunded.Status)
	require.True(t, refunded.RefundedAmount.Equal(dec("40.00")))

	refunded, err = svc.RefundPayment(context.Background(), p.ID, dec("60.00"), "")
	require.NoError(t, err)
	require.Equal(t, payment.StatusRefunded, refunded.Status)
	require.True(t, refunded.RefundedAmount.Equal(dec("100.00")))

	// Fully refunded payments accept nothing more.
	_, err = svc.RefundPayment(context.Background(), p.ID, dec("0.01"), "")
	require.ErrorIs(t, err, payment.ErrInvalidStateTransition)

	require.Equal(t, 2.0, testutil.ToFloat64(counters.PaymentsRefunded))
}

func TestRefundPayment_GuardRejections(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, _ := newService(store, approvingGateway())

	created := createTestPayment(t, svc, "100.00")

	// Refund before capture.
	_, err := svc.RefundPayment(context.Background(), created.ID, dec("10.00"), "")
	require.ErrorIs(t, err, payment.ErrInvalidStateTransition)

	_, err = svc.ProcessPayment(context.Background(), created.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-5.00"},
		{"over balance", "100.01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RefundPayment(context.Background(), created.ID, dec(tc.amount), "")
			require.ErrorIs(t, err, payment.ErrInvalidRefundAmount)
		})
	}

	// State unchanged after rejections.
	p, err := svc.GetPayment(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCompleted, p.Status)
	require.True(t, p.RefundedAmount.IsZero())

	entries, err := store.ListByPayment(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2, "rejected refunds must not append entries")
}

func TestRefundPayment_CumulativeRefundsNeverExceedAmount(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, _ := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")
	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)

	for _, amount := range []string{"30.00", "30.00", "30.00"} {
		if _, err := svc.RefundPayment(context.Background(), p.ID, dec(amount), ""); err != nil {
			require.ErrorIs(t, err, payment.ErrInvalidRefundAmount)
		}
	}

	current, err := svc.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, current.RefundedAmount.LessThanOrEqual(current.Amount))
	require.True(t, current.RefundedAmount.Equal(dec("90.00")))
	require.Equal(t, payment.StatusPartiallyRefunded, current.Status)
}

func TestLedgerReplay_ReproducesPaymentState(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, _ := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")
	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)
	_, err = svc.RefundPayment(context.Background(), p.ID, dec("40.00"), "")
	require.NoError(t, err)
	_, err = svc.RefundPayment(context.Background(), p.ID, dec("60.00"), "")
	require.NoError(t, err)

	current, err := svc.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)

	entries, err := svc.ListTransactions(context.Background(), p.ID)
	require.NoError(t, err)

	status, refunded, err := ledger.Replay(entries)
	require.NoError(t, err)
	require.Equal(t, current.Status, status)
	require.True(t, refunded.Equal(current.RefundedAmount))
}

func TestRefundPayment_ConcurrentOverRefund_OnlyOneSucceeds(t *testing.T) {
	store := inmemory.NewPaymentStore()
	svc, _, _ := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")
	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)

	// Combined refunds exceed the balance; exactly one may land.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RefundPayment(context.Background(), p.ID, dec("60.00"), "")
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, payment.ErrInvalidRefundAmount), errors.Is(err, payment.ErrConflict):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one refund may win")
	require.Equal(t, 1, rejected)

	current, err := svc.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, current.RefundedAmount.Equal(dec("60.00")))
	require.True(t, current.RefundedAmount.LessThanOrEqual(current.Amount))
}

// conflictingStore forces the first update commit to lose, then delegates.
type conflictingStore struct {
	processing.Store
	mu        sync.Mutex
	conflicts int
	remaining int
}

func (s *conflictingStore) UpdateAndCommit(ctx context.Context, id string, mutate func(*payment.Payment) (*ledger.Entry, error)) (*payment.Payment, error) {
	s.mu.Lock()
	if s.remaining > 0 {
		s.remaining--
		s.conflicts++
		s.mu.Unlock()
		return nil, payment.ErrConflict
	}
	s.mu.Unlock()
	return s.Store.UpdateAndCommit(ctx, id, mutate)
}

func TestService_RetriesConflictsWithFreshReads(t *testing.T) {
	inner := inmemory.NewPaymentStore()
	store := &conflictingStore{Store: inner, remaining: 2}
	svc, _, counters := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")

	processed, err := svc.ProcessPayment(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCompleted, processed.Status)
	require.Equal(t, 2, store.conflicts)
	require.Equal(t, 2.0, testutil.ToFloat64(counters.CommitConflicts))
}

func TestService_SurfacesConflictWhenRetriesExhaust(t *testing.T) {
	inner := inmemory.NewPaymentStore()
	store := &conflictingStore{Store: inner, remaining: 10}
	svc, _, _ := newService(store, approvingGateway())

	p := createTestPayment(t, svc, "100.00")

	_, err := svc.ProcessPayment(context.Background(), p.ID)
	require.ErrorIs(t, err, payment.ErrConflict)
}
