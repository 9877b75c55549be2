package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/pkg/logger"
	"github.com/meterline/billing/pkg/prom"
)

// DueDays is how long a customer has to settle a bill after it is issued.
const DueDays = 14

type ReadingRepository interface {
	Create(ctx context.Context, r *model.Reading) (*model.Reading, error)
	Get(ctx context.Context, id int64) (*model.Reading, error)
	FindPrevious(ctx context.Context, r *model.Reading) (*model.Reading, error)
	ListUnbilled(ctx context.Context) ([]*model.Reading, error)
}

type BillRepository interface {
	Create(ctx context.Context, b *model.Bill) (*model.Bill, error)
	Get(ctx context.Context, id int64) (*model.Bill, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Bill, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.BillStatus) error
	List(ctx context.Context, f model.BillFilter) ([]*model.Bill, int64, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MeterRepository interface {
	Create(ctx context.Context, m *model.Meter) (*model.Meter, error)
	Get(ctx context.Context, id int64) (*model.Meter, error)
}

// EventPublisher pushes billing events onto the stream. *queue.Queue
// satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type BillingService struct {
	readingRepo ReadingRepository
	billRepo    BillRepository
	meterRepo   MeterRepository
	tariffRepo  TariffRepository
	utilityRepo UtilityTypeRepository
	events      EventPublisher
	now         NowFunc
}

func NewBillingService(readingRepo ReadingRepository, billRepo BillRepository, meterRepo MeterRepository, tariffRepo TariffRepository, utilityRepo UtilityTypeRepository, events EventPublisher) *BillingService {
	return &BillingService{
		readingRepo: readingRepo,
		billRepo:    billRepo,
		meterRepo:   meterRepo,
		tariffRepo:  tariffRepo,
		utilityRepo: utilityRepo,
		events:      events,
		now:         defaultNow,
	}
}

// SubmitReading stores a field reading after checking the meter exists.
func (s *BillingService) SubmitReading(ctx context.Context, p model.ReadingCreateRequest) (*model.Reading, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.meterRepo.Get(ctx, p.MeterID); err != nil {
		if errors.Is(err, repository.ErrMeterNotFound) {
			return nil, ErrMeterNotFound
		}
		return nil, fmt.Errorf("get meter: %w", err)
	}

	return s.readingRepo.Create(ctx, &model.Reading{
		MeterID:    p.MeterID,
		Value:      p.Value,
		ReadAt:     p.ReadAt,
		Notes:      p.Notes,
		RecordedBy: p.RecordedBy,
	})
}

// derive computes the consumption for a reading from its predecessor on the
// same meter. A meter's first reading consumes its full register value. A
// value below the predecessor is rejected rather than clamped; meter
// rollover or replacement needs an operator decision, not a silent zero.
func (s *BillingService) derive(ctx context.Context, reading *model.Reading) (previous float64, consumption float64, err error) {
	prev, err := s.readingRepo.FindPrevious(ctx, reading)
	if err != nil {
		return 0, 0, fmt.Errorf("find previous reading: %w", err)
	}
	if prev != nil {
		previous = prev.Value
	}

	consumption = reading.Value - previous
	if consumption < 0 {
		return 0, 0, ErrInvalidReading
	}
	return previous, consumption, nil
}

func (s *BillingService) price(ctx context.Context, meter *model.Meter, consumption float64) (float64, error) {
	tariffs, err := s.tariffRepo.ListByUtilityType(ctx, meter.UtilityTypeID)
	if err != nil {
		return 0, fmt.Errorf("list tariffs: %w", err)
	}
	amount, err := CalculateAmount(tariffs, consumption)
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// PreviewReading computes what a reading would be billed without creating
// anything.
func (s *BillingService) PreviewReading(ctx context.Context, readingID int64) (*model.ReadingPreview, error) {
	reading, err := s.readingRepo.Get(ctx, readingID)
	if err != nil {
		if errors.Is(err, repository.ErrReadingNotFound) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}

	meter, err := s.meterRepo.Get(ctx, reading.MeterID)
	if err != nil {
		return nil, fmt.Errorf("get meter: %w", err)
	}

	previous, consumption, err := s.derive(ctx, reading)
	if err != nil {
		return nil, err
	}

	amount, err := s.price(ctx, meter, consumption)
	if err != nil {
		return nil, err
	}

	return &model.ReadingPreview{
		ReadingID:     reading.ID,
		MeterID:       meter.ID,
		CustomerID:    meter.CustomerID,
		PreviousValue: previous,
		CurrentValue:  reading.Value,
		Consumption:   consumption,
		AmountDue:     amount,
	}, nil
}

// GenerateBill turns an unbilled reading into a bill. Consumption is the
// delta to the previous reading, priced through the utility's tariff
// brackets. The unique index on the billed reading makes racing calls
// resolve to exactly one bill; the loser gets ErrAlreadyBilled.
func (s *BillingService) GenerateBill(ctx context.Context, p model.GenerateBillRequest) (*model.Bill, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	reading, err := s.readingRepo.Get(ctx, p.ReadingID)
	if err != nil {
		if errors.Is(err, repository.ErrReadingNotFound) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}

	meter, err := s.meterRepo.Get(ctx, reading.MeterID)
	if err != nil {
		return nil, fmt.Errorf("get meter: %w", err)
	}

	billDate := p.BillDate
	if billDate.IsZero() {
		billDate = s.now()
	}

	var created *model.Bill
	err = s.billRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		previous, consumption, err := s.derive(ctx, reading)
		if err != nil {
			return err
		}

		amount, err := s.price(ctx, meter, consumption)
		if err != nil {
			return err
		}

		created, err = s.billRepo.Create(ctx, &model.Bill{
			CustomerID:           meter.CustomerID,
			MeterID:              meter.ID,
			ReadingID:            reading.ID,
			BillDate:             billDate,
			DueDate:              billDate.AddDate(0, 0, DueDays),
			PreviousReadingValue: previous,
			CurrentReadingValue:  reading.Value,
			Consumption:          consumption,
			AmountDue:            amount,
			Status:               model.BillStatusUnpaid,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateBill) {
				return ErrAlreadyBilled
			}
			return fmt.Errorf("create bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.IncBillsGenerated(s.utilityLabel(ctx, meter.UtilityTypeID))
	publishEvent(ctx, s.events, model.EventBillGenerated, model.BillGeneratedEvent{
		BillID:      created.ID,
		CustomerID:  created.CustomerID,
		MeterID:     created.MeterID,
		ReadingID:   created.ReadingID,
		Consumption: created.Consumption,
		AmountDue:   created.AmountDue,
		DueDate:     created.DueDate,
	})

	return created, nil
}

func (s *BillingService) utilityLabel(ctx context.Context, utilityTypeID int64) string {
	if s.utilityRepo != nil {
		if u, err := s.utilityRepo.Get(ctx, utilityTypeID); err == nil {
			return u.Name
		}
	}
	return fmt.Sprintf("%d", utilityTypeID)
}

func (s *BillingService) GetBill(ctx context.Context, id int64) (*model.Bill, error) {
	bill, err := s.billRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBillNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

func (s *BillingService) ListBills(ctx context.Context, f model.BillFilter) ([]*model.Bill, int64, error) {
	return s.billRepo.List(ctx, f)
}

func (s *BillingService) ListUnbilledReadings(ctx context.Context) ([]*model.Reading, error) {
	return s.readingRepo.ListUnbilled(ctx)
}

// MarkOverdueBills is the sweep the worker runs on a schedule.
func (s *BillingService) MarkOverdueBills(ctx context.Context) (int64, error) {
	n, err := s.billRepo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		prom.AddBillsMarkedOverdue(float64(n))
		logger.Info("marked bills overdue", "count", n)
	}
	return n, nil
}
