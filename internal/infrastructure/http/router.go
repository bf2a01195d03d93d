package httpapi

import "net/http"

func NewRouter(handler *PaymentHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /payments", handler.CreatePayment)
	mux.HandleFunc("GET /payments", handler.ListPayments)
	mux.HandleFunc("GET /payments/{id}", handler.GetPayment)
	mux.HandleFunc("POST /payments/{id}/process", handler.ProcessPayment)
	mux.HandleFunc("POST /payments/{id}/refund", handler.RefundPayment)
	mux.HandleFunc("GET /payments/{id}/transactions", handler.ListTransactions)
	mux.HandleFunc("GET /health", handler.Health)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return mux
}
