package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/payment_processor-go/internal/application/processing"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

type PaymentHandler struct {
	Service *processing.Service
}

type CreatePaymentRequest struct {
	MerchantID    string          `json:"merchant_id"`
	CustomerID    string          `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
	CardLastFour  string          `json:"card_last_four"`
	CardType      string          `json:"card_type"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type PaymentResponse struct {
	ID             string  `json:"id"`
	MerchantID     string  `json:"merchant_id"`
	CustomerID     string  `json:"customer_id"`
	Amount         string  `json:"amount"`
	Currency       string  `json:"currency"`
	PaymentMethod  string  `json:"payment_method"`
	Status         string  `json:"status"`
	RefundedAmount string  `json:"refunded_amount"`
	Description    string  `json:"description,omitempty"`
	CardLastFour   string  `json:"card_last_four,omitempty"`
	CardType       string  `json:"card_type,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	ProcessedAt    *string `json:"processed_at,omitempty"`
}

type EntryResponse struct {
	ID              string `json:"id"`
	PaymentID       string `json:"payment_id"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	ResultingStatus string `json:"resulting_status"`
	Reason          string `json:"reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.Service.CreatePayment(r.Context(), processing.CreateRequest{
		MerchantID:   req.MerchantID,
		CustomerID:   req.CustomerID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Method:       payment.Method(req.PaymentMethod),
		Description:  req.Description,
		CardLastFour: req.CardLastFour,
		CardType:     req.CardType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.ProcessPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.Service.RefundPayment(r.Context(), r.PathValue("id"), req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := payment.Filter{
		MerchantID: r.URL.Query().Get("merchant_id"),
		CustomerID: r.URL.Query().Get("customer_id"),
		Status:     payment.Status(r.URL.Query().Get("status")),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	payments, err := h.Service.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": out,
		"offset":   filter.Offset,
		"limit":    filter.Limit,
	})
}

func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListTransactions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *PaymentHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "payment-api",
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), errorResponse{Error: err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, payment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrUnsupportedCurrency),
		errors.Is(err, payment.ErrInvalidRequest),
		errors.Is(err, payment.ErrInvalidStateTransition),
		errors.Is(err, payment.ErrInvalidRefundAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID,
		MerchantID:     p.MerchantID,
		CustomerID:     p.CustomerID,
		Amount:         p.Amount.String(),
		Currency:       p.Currency,
		PaymentMethod:  string(p.Method),
		Status:         string(p.Status),
		RefundedAmount: p.RefundedAmount.String(),
		Description:    p.Description,
		CardLastFour:   p.CardLastFour,
		CardType:       p.CardType,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		t := p.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &t
	}
	return resp
}

func toEntryResponse(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		PaymentID:       e.PaymentID,
		Type:            string(e.Type),
		Amount:          e.Amount.String(),
		ResultingStatus: string(e.ResultingStatus),
		Reason:          e.Reason,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}
