package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/services"
	xhttp "github.com/meterline/billing/pkg/http"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) SubmitReading(ctx context.Context, p model.ReadingCreateRequest) (*model.Reading, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *MockBillingService) PreviewReading(ctx context.Context, readingID int64) (*model.ReadingPreview, error) {
	args := m.Called(ctx, readingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReadingPreview), args.Error(1)
}

func (m *MockBillingService) ListUnbilledReadings(ctx context.Context) ([]*model.Reading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reading), args.Error(1)
}

func (m *MockBillingService) GenerateBill(ctx context.Context, p model.GenerateBillRequest) (*model.Bill, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillingService) GetBill(ctx context.Context, id int64) (*model.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockBillingService) ListBills(ctx context.Context, f model.BillFilter) ([]*model.Bill, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Bill), args.Get(1).(int64), args.Error(2)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func TestBillingHandler_SubmitReading(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("SubmitReading", mock.Anything, mock.MatchedBy(func(p model.ReadingCreateRequest) bool {
			return p.MeterID == 3 && p.Value == 180 && p.RecordedBy == "reader-7"
		})).Return(&model.Reading{ID: 9, MeterID: 3, Value: 180}, nil)

		body, _ := json.Marshal(map[string]interface{}{
			"meter_id":    3,
			"value":       180,
			"read_at":     "2026-02-01",
			"recorded_by": "reader-7",
		})
		ctx := setupTestContext("POST", "/api/v1/readings", body)
		handler.SubmitReading(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

		var reading model.Reading
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &reading))
		assert.Equal(t, int64(9), reading.ID)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewBillingHandler(new(MockBillingService))

		ctx := setupTestContext("POST", "/api/v1/readings", []byte("{"))
		handler.SubmitReading(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})

	t.Run("unknown meter maps to 404", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("SubmitReading", mock.Anything, mock.Anything).
			Return(nil, services.ErrMeterNotFound)

		body, _ := json.Marshal(map[string]interface{}{
			"meter_id":    99,
			"value":       180,
			"read_at":     "2026-02-01",
			"recorded_by": "reader-7",
		})
		ctx := setupTestContext("POST", "/api/v1/readings", body)
		handler.SubmitReading(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})
}

func TestBillingHandler_GenerateBill(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("GenerateBill", mock.Anything, mock.MatchedBy(func(p model.GenerateBillRequest) bool {
			return p.ReadingID == 9
		})).Return(&model.Bill{ID: 77, ReadingID: 9, AmountDue: 870}, nil)

		body, _ := json.Marshal(map[string]interface{}{"reading_id": 9})
		ctx := setupTestContext("POST", "/api/v1/bills", body)
		handler.GenerateBill(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())

		var bill model.Bill
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &bill))
		assert.Equal(t, 870.0, bill.AmountDue)
	})

	t.Run("already billed maps to 409", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("GenerateBill", mock.Anything, mock.Anything).
			Return(nil, services.ErrAlreadyBilled)

		body, _ := json.Marshal(map[string]interface{}{"reading_id": 9})
		ctx := setupTestContext("POST", "/api/v1/bills", body)
		handler.GenerateBill(ctx)

		assert.Equal(t, xhttp.StatusConflict, ctx.Response.StatusCode())
	})

	t.Run("negative consumption maps to 422", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("GenerateBill", mock.Anything, mock.Anything).
			Return(nil, services.ErrInvalidReading)

		body, _ := json.Marshal(map[string]interface{}{"reading_id": 9})
		ctx := setupTestContext("POST", "/api/v1/bills", body)
		handler.GenerateBill(ctx)

		assert.Equal(t, xhttp.StatusUnprocessableEntity, ctx.Response.StatusCode())
	})
}

func TestBillingHandler_GetBill(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("GetBill", mock.Anything, int64(77)).Return(&model.Bill{ID: 77}, nil)

		ctx := setupTestContext("GET", "/api/v1/bills/77", nil)
		ctx.SetUserValue("id", "77")
		handler.GetBill(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockBillingService)
		handler := NewBillingHandler(svc)

		svc.On("GetBill", mock.Anything, int64(99)).Return(nil, services.ErrBillNotFound)

		ctx := setupTestContext("GET", "/api/v1/bills/99", nil)
		ctx.SetUserValue("id", "99")
		handler.GetBill(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		handler := NewBillingHandler(new(MockBillingService))

		ctx := setupTestContext("GET", "/api/v1/bills/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetBill(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestBillingHandler_ListBills(t *testing.T) {
	svc := new(MockBillingService)
	handler := NewBillingHandler(svc)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("ListBills", mock.Anything, mock.MatchedBy(func(f model.BillFilter) bool {
		return f.CustomerID != nil && *f.CustomerID == 1 &&
			len(f.Statuses) == 2 &&
			f.From != nil && f.From.Equal(from) &&
			f.Limit == 10 && f.Desc
	})).Return([]*model.Bill{{ID: 1}, {ID: 2}}, int64(2), nil)

	ctx := setupTestContext("GET", "/api/v1/bills?customer_id=1&status=Unpaid,Overdue&from=2026-01-01&limit=10&order=desc", nil)
	handler.ListBills(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var resp billListResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Items, 2)
}

func TestBillingHandler_PreviewReading(t *testing.T) {
	svc := new(MockBillingService)
	handler := NewBillingHandler(svc)

	svc.On("PreviewReading", mock.Anything, int64(9)).Return(&model.ReadingPreview{
		ReadingID:   9,
		Consumption: 80,
		AmountDue:   870,
	}, nil)

	ctx := setupTestContext("GET", "/api/v1/readings/9/preview", nil)
	ctx.SetUserValue("id", "9")
	handler.PreviewReading(ctx)

	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	var preview model.ReadingPreview
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &preview))
	assert.Equal(t, 870.0, preview.AmountDue)
}
