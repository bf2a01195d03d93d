package contracts

import "github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"

type EventRecorder interface {
	Record(event.Event) error
}
