package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/meterline/billing/internal/model"
	xhttp "github.com/meterline/billing/pkg/http"
)

type PaymentService interface {
	RecordPayment(ctx context.Context, p model.PaymentCreateRequest) (*model.Payment, error)
	ListPayments(ctx context.Context, billID int64) ([]*model.Payment, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: paymentService,
	}
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/bills/{id}/payments", h.RecordPayment)
	e.GET("/bills/{id}/payments", h.ListPayments)
}

type recordPaymentRequest struct {
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	RecordedBy string  `json:"recorded_by"`
}

func (h *PaymentHandler) RecordPayment(ctx *xhttp.RequestCtx) {
	billID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid bill id")
		return
	}

	var req recordPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	payment, err := h.svc.RecordPayment(ctx, model.PaymentCreateRequest{
		BillID:     billID,
		Amount:     req.Amount,
		Method:     req.Method,
		RecordedBy: req.RecordedBy,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, payment)
}

func (h *PaymentHandler) ListPayments(ctx *xhttp.RequestCtx) {
	billID, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid bill id")
		return
	}

	payments, err := h.svc.ListPayments(ctx, billID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, payments)
}
