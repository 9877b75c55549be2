package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/pkg/prom"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	ListByBill(ctx context.Context, billID int64) ([]*model.Payment, error)
}

type PaymentService struct {
	paymentRepo PaymentRepository
	billRepo    BillRepository
	events      EventPublisher
	now         NowFunc
}

func NewPaymentService(paymentRepo PaymentRepository, billRepo BillRepository, events EventPublisher) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		billRepo:    billRepo,
		events:      events,
		now:         defaultNow,
	}
}

// RecordPayment settles a bill. The bill row is locked for the duration of
// the transaction, so two cashiers racing on the same bill serialize and the
// second one sees it already settled. A payment below the amount due is
// refused outright; overpayment is accepted and kept on record.
func (s *PaymentService) RecordPayment(ctx context.Context, p model.PaymentCreateRequest) (*model.Payment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var created *model.Payment
	var bill *model.Bill
	err := s.billRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		bill, err = s.billRepo.GetForUpdate(ctx, p.BillID)
		if err != nil {
			if errors.Is(err, repository.ErrBillNotFound) {
				return ErrBillNotFound
			}
			return fmt.Errorf("lock bill: %w", err)
		}

		if bill.Status == model.BillStatusPaid {
			return ErrAlreadySettled
		}
		if p.Amount < bill.AmountDue {
			return ErrIncompletePayment
		}

		created, err = s.paymentRepo.Create(ctx, &model.Payment{
			BillID:     bill.ID,
			Reference:  uuid.New().String(),
			Amount:     p.Amount,
			Method:     p.Method,
			PaidAt:     s.now(),
			RecordedBy: p.RecordedBy,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if err := s.billRepo.UpdateStatus(ctx, bill.ID, bill.Status, model.BillStatusPaid); err != nil {
			return fmt.Errorf("settle bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncPaymentsRecorded(created.Method)
	publishEvent(ctx, s.events, model.EventPaymentRecorded, model.PaymentRecordedEvent{
		PaymentID:  created.ID,
		BillID:     bill.ID,
		CustomerID: bill.CustomerID,
		Reference:  created.Reference,
		Amount:     created.Amount,
		Method:     created.Method,
	})

	return created, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, billID int64) ([]*model.Payment, error) {
	if _, err := s.billRepo.Get(ctx, billID); err != nil {
		if errors.Is(err, repository.ErrBillNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return s.paymentRepo.ListByBill(ctx, billID)
}
