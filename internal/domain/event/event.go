package event

type Type string

const (
	PaymentCreated  Type = "PAYMENT_CREATED"
	PaymentCaptured Type = "PAYMENT_CAPTURED"
	PaymentRefunded Type = "PAYMENT_REFUNDED"
	PaymentFailed   Type = "PAYMENT_FAILED"
)

type Event struct {
	Type    Type
	Payload any
}
