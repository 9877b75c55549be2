package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/meterline/billing/internal/model"
	xhttp "github.com/meterline/billing/pkg/http"
)

type AccountService interface {
	CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) (*model.CascadeResult, error)
	CreateMeter(ctx context.Context, m *model.Meter) (*model.Meter, error)
	GetMeter(ctx context.Context, id int64) (*model.Meter, error)
	DeleteMeter(ctx context.Context, id int64) (*model.CascadeResult, error)
	ListUtilityTypes(ctx context.Context) ([]*model.UtilityType, error)
}

type TariffService interface {
	Create(ctx context.Context, t *model.Tariff) (*model.Tariff, error)
	List(ctx context.Context, utilityTypeID int64) ([]*model.Tariff, error)
	Preview(ctx context.Context, utilityTypeID int64, consumption float64) (*model.TariffPreview, error)
	Delete(ctx context.Context, id int64) error
}

type AccountHandler struct {
	accounts AccountService
	tariffs  TariffService
}

func NewAccountHandler(accountService AccountService, tariffService TariffService) *AccountHandler {
	return &AccountHandler{
		accounts: accountService,
		tariffs:  tariffService,
	}
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.POST("/customers", h.CreateCustomer)
	e.GET("/customers/{id}", h.GetCustomer)
	e.DELETE("/customers/{id}", h.DeleteCustomer)
	e.POST("/meters", h.CreateMeter)
	e.GET("/meters/{id}", h.GetMeter)
	e.DELETE("/meters/{id}", h.DeleteMeter)
	e.GET("/utility-types", h.ListUtilityTypes)
	e.POST("/tariffs", h.CreateTariff)
	e.GET("/tariffs", h.ListTariffs)
	e.GET("/tariffs/preview", h.PreviewTariff)
	e.DELETE("/tariffs/{id}", h.DeleteTariff)
}

type createCustomerRequest struct {
	Name           string `json:"name"`
	CustomerType   string `json:"customer_type"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ServiceAddress string `json:"service_address"`
	BillingAddress string `json:"billing_address"`
}

type createMeterRequest struct {
	CustomerID    int64  `json:"customer_id"`
	UtilityTypeID int64  `json:"utility_type_id"`
	Location      string `json:"location"`
}

type createTariffRequest struct {
	UtilityTypeID int64    `json:"utility_type_id"`
	Name          string   `json:"name"`
	Rate          float64  `json:"rate"`
	MinUnits      float64  `json:"min_units"`
	MaxUnits      *float64 `json:"max_units"`
	FixedCharge   float64  `json:"fixed_charge"`
}

func (h *AccountHandler) CreateCustomer(ctx *xhttp.RequestCtx) {
	var req createCustomerRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	customer, err := h.accounts.CreateCustomer(ctx, &model.Customer{
		Name:           req.Name,
		CustomerType:   req.CustomerType,
		Email:          req.Email,
		Phone:          req.Phone,
		ServiceAddress: req.ServiceAddress,
		BillingAddress: req.BillingAddress,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, customer)
}

func (h *AccountHandler) GetCustomer(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid customer id")
		return
	}

	customer, err := h.accounts.GetCustomer(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, customer)
}

func (h *AccountHandler) DeleteCustomer(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid customer id")
		return
	}

	res, err := h.accounts.DeleteCustomer(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *AccountHandler) CreateMeter(ctx *xhttp.RequestCtx) {
	var req createMeterRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	meter, err := h.accounts.CreateMeter(ctx, &model.Meter{
		CustomerID:    req.CustomerID,
		UtilityTypeID: req.UtilityTypeID,
		Location:      req.Location,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, meter)
}

func (h *AccountHandler) GetMeter(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid meter id")
		return
	}

	meter, err := h.accounts.GetMeter(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, meter)
}

func (h *AccountHandler) DeleteMeter(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid meter id")
		return
	}

	res, err := h.accounts.DeleteMeter(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *AccountHandler) ListUtilityTypes(ctx *xhttp.RequestCtx) {
	types, err := h.accounts.ListUtilityTypes(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, types)
}

func (h *AccountHandler) CreateTariff(ctx *xhttp.RequestCtx) {
	var req createTariffRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	tariff, err := h.tariffs.Create(ctx, &model.Tariff{
		UtilityTypeID: req.UtilityTypeID,
		Name:          req.Name,
		Rate:          req.Rate,
		MinUnits:      req.MinUnits,
		MaxUnits:      req.MaxUnits,
		FixedCharge:   req.FixedCharge,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, tariff)
}

func (h *AccountHandler) ListTariffs(ctx *xhttp.RequestCtx) {
	utilityTypeID, err := strconv.ParseInt(query(ctx, "utility_type_id"), 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "utility_type_id is required")
		return
	}

	tariffs, err := h.tariffs.List(ctx, utilityTypeID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, tariffs)
}

func (h *AccountHandler) PreviewTariff(ctx *xhttp.RequestCtx) {
	utilityTypeID, err := strconv.ParseInt(query(ctx, "utility_type_id"), 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "utility_type_id is required")
		return
	}
	consumption, err := strconv.ParseFloat(query(ctx, "consumption"), 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "consumption is required")
		return
	}

	preview, err := h.tariffs.Preview(ctx, utilityTypeID, consumption)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, preview)
}

func (h *AccountHandler) DeleteTariff(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid tariff id")
		return
	}

	if err := h.tariffs.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}
