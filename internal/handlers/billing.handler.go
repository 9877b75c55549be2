package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"

	"github.com/meterline/billing/internal/model"
	xhttp "github.com/meterline/billing/pkg/http"
)

type BillingService interface {
	SubmitReading(ctx context.Context, p model.ReadingCreateRequest) (*model.Reading, error)
	PreviewReading(ctx context.Context, readingID int64) (*model.ReadingPreview, error)
	ListUnbilledReadings(ctx context.Context) ([]*model.Reading, error)
	GenerateBill(ctx context.Context, p model.GenerateBillRequest) (*model.Bill, error)
	GetBill(ctx context.Context, id int64) (*model.Bill, error)
	ListBills(ctx context.Context, f model.BillFilter) ([]*model.Bill, int64, error)
}

type BillingHandler struct {
	svc BillingService
}

func NewBillingHandler(billingService BillingService) *BillingHandler {
	return &BillingHandler{
		svc: billingService,
	}
}

func RegisterBillingRoutes(e *router.Group, h *BillingHandler) {
	e.POST("/readings", h.SubmitReading)
	e.GET("/readings/unbilled", h.ListUnbilledReadings)
	e.GET("/readings/{id}/preview", h.PreviewReading)
	e.POST("/bills", h.GenerateBill)
	e.GET("/bills", h.ListBills)
	e.GET("/bills/{id}", h.GetBill)
}

type submitReadingRequest struct {
	MeterID    int64   `json:"meter_id"`
	Value      float64 `json:"value"`
	ReadAt     string  `json:"read_at"`
	Notes      string  `json:"notes"`
	RecordedBy string  `json:"recorded_by"`
}

type generateBillRequest struct {
	ReadingID int64  `json:"reading_id"`
	BillDate  string `json:"bill_date"`
}

type billListResponse struct {
	Items []*model.Bill `json:"items"`
	Total int64         `json:"total"`
}

func (h *BillingHandler) SubmitReading(ctx *xhttp.RequestCtx) {
	var req submitReadingRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	p := model.ReadingCreateRequest{
		MeterID:    req.MeterID,
		Value:      req.Value,
		Notes:      req.Notes,
		RecordedBy: req.RecordedBy,
	}
	if req.ReadAt != "" {
		t, err := parseTime(req.ReadAt)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid read_at: "+err.Error())
			return
		}
		p.ReadAt = t
	}

	reading, err := h.svc.SubmitReading(ctx, p)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, reading)
}

func (h *BillingHandler) ListUnbilledReadings(ctx *xhttp.RequestCtx) {
	readings, err := h.svc.ListUnbilledReadings(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, readings)
}

func (h *BillingHandler) PreviewReading(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid reading id")
		return
	}

	preview, err := h.svc.PreviewReading(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, preview)
}

func (h *BillingHandler) GenerateBill(ctx *xhttp.RequestCtx) {
	var req generateBillRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	p := model.GenerateBillRequest{ReadingID: req.ReadingID}
	if req.BillDate != "" {
		t, err := parseTime(req.BillDate)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid bill_date: "+err.Error())
			return
		}
		p.BillDate = t
	}

	bill, err := h.svc.GenerateBill(ctx, p)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, bill)
}

func (h *BillingHandler) GetBill(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid bill id")
		return
	}

	bill, err := h.svc.GetBill(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, bill)
}

func (h *BillingHandler) ListBills(ctx *xhttp.RequestCtx) {
	var f model.BillFilter

	if v := query(ctx, "customer_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CustomerID = &id
		}
	}
	if v := query(ctx, "meter_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.MeterID = &id
		}
	}
	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.BillStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.ListBills(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, billListResponse{Items: items, Total: total})
}
