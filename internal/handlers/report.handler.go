package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"

	"github.com/meterline/billing/internal/model"
	xhttp "github.com/meterline/billing/pkg/http"
)

type ReportService interface {
	Defaulters(ctx context.Context) ([]*model.Defaulter, error)
	MonthlyRevenue(ctx context.Context) ([]*model.MonthlyRevenue, error)
	DailyCollections(ctx context.Context, from, to time.Time) (*model.CollectionSummary, error)
	ConsumptionRanking(ctx context.Context) ([]*model.ConsumptionRank, error)
}

type ReportHandler struct {
	svc ReportService
}

func NewReportHandler(reportService ReportService) *ReportHandler {
	return &ReportHandler{
		svc: reportService,
	}
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.GET("/reports/defaulters", h.Defaulters)
	e.GET("/reports/revenue", h.MonthlyRevenue)
	e.GET("/reports/collections", h.DailyCollections)
	e.GET("/reports/consumption", h.ConsumptionRanking)
}

func (h *ReportHandler) ConsumptionRanking(ctx *xhttp.RequestCtx) {
	rows, err := h.svc.ConsumptionRanking(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}

func (h *ReportHandler) Defaulters(ctx *xhttp.RequestCtx) {
	rows, err := h.svc.Defaulters(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}

func (h *ReportHandler) MonthlyRevenue(ctx *xhttp.RequestCtx) {
	rows, err := h.svc.MonthlyRevenue(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}

func (h *ReportHandler) DailyCollections(ctx *xhttp.RequestCtx) {
	var from, to time.Time
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			from = t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			to = t
		}
	}

	summary, err := h.svc.DailyCollections(ctx, from, to)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, summary)
}
