package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters groups the processing counters. Register them against a dedicated
// registry in tests to keep runs independent.
type Counters struct {
	PaymentsCreated   prometheus.Counter
	PaymentsProcessed prometheus.Counter
	PaymentsSucceeded prometheus.Counter
	PaymentsFailed    prometheus.Counter
	PaymentsRefunded  prometheus.Counter
	CommitConflicts   prometheus.Counter
}

func NewCounters(reg prometheus.Registerer) *Counters {
	factory := promauto.With(reg)
	return &Counters{
		PaymentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Payments accepted by CreatePayment.",
		}),
		PaymentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Capture attempts that reached the gateway.",
		}),
		PaymentsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_succeeded_total",
			Help: "Captures approved by the gateway.",
		}),
		PaymentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_failed_total",
			Help: "Captures declined by the gateway.",
		}),
		PaymentsRefunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_refunded_total",
			Help: "Accepted refund operations.",
		}),
		CommitConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_commit_conflicts_total",
			Help: "Optimistic-concurrency commits that lost the race.",
		}),
	}
}

func (c *Counters) IncCreated()   { c.PaymentsCreated.Inc() }
func (c *Counters) IncProcessed() { c.PaymentsProcessed.Inc() }
func (c *Counters) IncSucceeded() { c.PaymentsSucceeded.Inc() }
func (c *Counters) IncFailed()    { c.PaymentsFailed.Inc() }
func (c *Counters) IncRefunded()  { c.PaymentsRefunded.Inc() }
func (c *Counters) IncConflicts() { c.CommitConflicts.Inc() }
