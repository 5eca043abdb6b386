package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/bistro-api/internal/domain"
	"github.com/diagnosis/bistro-api/internal/http/response"
)

// PaymentWorkflow is implemented by service.PaymentService.
type PaymentWorkflow interface {
	Reconcile(ctx context.Context, req domain.PaymentRequest) (*domain.ReconcileResult, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Payment, error)
	CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntentResponse, error)
}

type PaymentsHandler struct {
	Payments PaymentWorkflow
}

func NewPaymentsHandler(payments PaymentWorkflow) *PaymentsHandler {
	return &PaymentsHandler{Payments: payments}
}

func (h *PaymentsHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	var in domain.PaymentRequest
	if !decodeValid(w, r, &in) {
		return
	}

	res, err := h.Payments.Reconcile(r.Context(), in)
	if err != nil {
		writeError(w, r, "reconcile payment", err)
		return
	}
	response.OK(w, res)
}

func (h *PaymentsHandler) listByEmail(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Payments.ListByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, "list payments", err)
		return
	}
	response.OK(w, payments)
}

func (h *PaymentsHandler) createIntent(w http.ResponseWriter, r *http.Request) {
	var in domain.PaymentIntentRequest
	if !decodeValid(w, r, &in) {
		return
	}

	res, err := h.Payments.CreateIntent(r.Context(), in)
	if err != nil {
		writeError(w, r, "create payment intent", err)
		return
	}
	response.OK(w, res)
}
