package event

type PaymentCreatedPayload struct {
	PaymentID  string `json:"payment_id"`
	MerchantID string `json:"merchant_id"`
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

type PaymentCapturedPayload struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type PaymentRefundedPayload struct {
	PaymentID      string `json:"payment_id"`
	Amount         string `json:"amount"`
	RefundedAmount string `json:"refunded_amount"`
	Full           bool   `json:"full"`
}

type PaymentFailedPayload struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}
