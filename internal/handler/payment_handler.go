package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/microearn/internal/model"
	"github.com/shopspring/decimal"
)

// PaymentServiceInterface は支払いハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	ListPayments(ctx context.Context) ([]*model.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error)
}

// PaymentHandler は支払い参照のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type paymentResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func toPaymentResponses(payments []*model.Payment) []paymentResponse {
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = paymentResponse{ID: p.ID, UserID: p.UserID, Amount: p.Amount, CreatedAt: p.CreatedAt}
	}
	return resp
}

// ListPayments は全支払いを返す。
// GET /payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}

// ListPaymentsByUser はユーザーの支払いを返す。
// GET /payments/{userID}
func (h *PaymentHandler) ListPaymentsByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlParam(w, r, "userID")
	if !ok {
		return
	}
	payments, err := h.service.ListPaymentsByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponses(payments))
}
