package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/repository"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByBill(ctx context.Context, billID int64) ([]*model.Payment, error) {
	args := m.Called(ctx, billID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func TestPaymentService_RecordPayment(t *testing.T) {
	ctx := context.Background()

	unpaidBill := func() *model.Bill {
		return &model.Bill{ID: 77, CustomerID: 1, AmountDue: 640, Status: model.BillStatusUnpaid}
	}

	req := model.PaymentCreateRequest{
		BillID:     77,
		Amount:     640,
		Method:     "Cash",
		RecordedBy: "cashier-3",
	}

	t.Run("settles the bill in full", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		events := new(MockEventPublisher)
		service := NewPaymentService(paymentRepo, billRepo, events)

		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(unpaidBill(), nil)
		billRepo.On("UpdateStatus", ctx, int64(77), model.BillStatusUnpaid, model.BillStatusPaid).Return(nil)
		events.On("PublishJSON", ctx, mock.Anything, mock.Anything).Return("1-0", nil)

		var captured *model.Payment
		paymentRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*model.Payment)
			}).
			Return(&model.Payment{ID: 5, BillID: 77, Reference: "ref", Amount: 640, Method: "Cash"}, nil)

		created, err := service.RecordPayment(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, int64(5), created.ID)
		require.NotNil(t, captured)
		assert.NotEmpty(t, captured.Reference)
		assert.False(t, captured.PaidAt.IsZero())
		billRepo.AssertExpectations(t)
	})

	t.Run("overpayment is accepted", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		service := NewPaymentService(paymentRepo, billRepo, nil)

		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(unpaidBill(), nil)
		billRepo.On("UpdateStatus", ctx, int64(77), model.BillStatusUnpaid, model.BillStatusPaid).Return(nil)
		paymentRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).
			Return(&model.Payment{ID: 6, Amount: 700, Method: "Cash"}, nil)

		over := req
		over.Amount = 700
		_, err := service.RecordPayment(ctx, over)
		require.NoError(t, err)
	})

	t.Run("partial payment is refused", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		service := NewPaymentService(paymentRepo, billRepo, nil)

		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(unpaidBill(), nil)

		partial := req
		partial.Amount = 100
		_, err := service.RecordPayment(ctx, partial)
		assert.ErrorIs(t, err, ErrIncompletePayment)
		paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("already settled bill", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		service := NewPaymentService(paymentRepo, billRepo, nil)

		paid := unpaidBill()
		paid.Status = model.BillStatusPaid
		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(paid, nil)

		_, err := service.RecordPayment(ctx, req)
		assert.ErrorIs(t, err, ErrAlreadySettled)
	})

	t.Run("overdue bill can still be settled", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		service := NewPaymentService(paymentRepo, billRepo, nil)

		overdue := unpaidBill()
		overdue.Status = model.BillStatusOverdue
		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(overdue, nil)
		billRepo.On("UpdateStatus", ctx, int64(77), model.BillStatusOverdue, model.BillStatusPaid).Return(nil)
		paymentRepo.On("Create", ctx, mock.AnythingOfType("*model.Payment")).
			Return(&model.Payment{ID: 7, Amount: 640, Method: "Cash"}, nil)

		_, err := service.RecordPayment(ctx, req)
		require.NoError(t, err)
	})

	t.Run("non positive amount", func(t *testing.T) {
		service := NewPaymentService(new(MockPaymentRepository), new(MockBillRepository), nil)

		zero := req
		zero.Amount = 0
		_, err := service.RecordPayment(ctx, zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown bill", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		service := NewPaymentService(new(MockPaymentRepository), billRepo, nil)

		billRepo.On("WithinTransaction", ctx, mock.Anything).Return(nil)
		billRepo.On("GetForUpdate", ctx, int64(77)).Return(nil, repository.ErrBillNotFound)

		_, err := service.RecordPayment(ctx, req)
		assert.ErrorIs(t, err, ErrBillNotFound)
	})
}

func TestPaymentService_ListPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the bill's payments", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		billRepo := new(MockBillRepository)
		service := NewPaymentService(paymentRepo, billRepo, nil)

		billRepo.On("Get", ctx, int64(77)).Return(&model.Bill{ID: 77}, nil)
		paymentRepo.On("ListByBill", ctx, int64(77)).
			Return([]*model.Payment{{ID: 1}, {ID: 2}}, nil)

		payments, err := service.ListPayments(ctx, 77)
		require.NoError(t, err)
		assert.Len(t, payments, 2)
	})

	t.Run("unknown bill", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		service := NewPaymentService(new(MockPaymentRepository), billRepo, nil)

		billRepo.On("Get", ctx, int64(99)).Return(nil, repository.ErrBillNotFound)

		_, err := service.ListPayments(ctx, 99)
		assert.ErrorIs(t, err, ErrBillNotFound)
	})
}
