package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/pkg/logger"
)

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) (*model.Customer, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	DeleteCascade(ctx context.Context, id int64) (*model.CascadeResult, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MeterAdminRepository interface {
	Create(ctx context.Context, m *model.Meter) (*model.Meter, error)
	Get(ctx context.Context, id int64) (*model.Meter, error)
	DeleteCascade(ctx context.Context, id int64) (*model.CascadeResult, error)
}

// AccountService owns customer and meter lifecycle, including the cascade
// deletes that purge an account's billing history.
type AccountService struct {
	customerRepo CustomerRepository
	meterRepo    MeterAdminRepository
	utilityRepo  UtilityTypeRepository
}

func NewAccountService(customerRepo CustomerRepository, meterRepo MeterAdminRepository, utilityRepo UtilityTypeRepository) *AccountService {
	return &AccountService{
		customerRepo: customerRepo,
		meterRepo:    meterRepo,
		utilityRepo:  utilityRepo,
	}
}

func (s *AccountService) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("customer name is required")
	}
	if c.CustomerType == "" {
		c.CustomerType = "Domestic"
	}
	return s.customerRepo.Create(ctx, c)
}

func (s *AccountService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	customer, err := s.customerRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer purges the customer and everything hanging off them:
// payments, bills, readings and meters, innermost first, in one
// transaction.
func (s *AccountService) DeleteCustomer(ctx context.Context, id int64) (*model.CascadeResult, error) {
	var res *model.CascadeResult
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.customerRepo.DeleteCascade(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrCustomerNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("customer deleted",
		"customer_id", id,
		"payments", res.Payments,
		"bills", res.Bills,
		"readings", res.Readings,
		"meters", res.Meters)
	return res, nil
}

func (s *AccountService) CreateMeter(ctx context.Context, m *model.Meter) (*model.Meter, error) {
	if _, err := s.customerRepo.Get(ctx, m.CustomerID); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if _, err := s.utilityRepo.Get(ctx, m.UtilityTypeID); err != nil {
		return nil, ErrUnknownUtility
	}
	if m.Status == "" {
		m.Status = model.MeterStatusActive
	}
	return s.meterRepo.Create(ctx, m)
}

func (s *AccountService) GetMeter(ctx context.Context, id int64) (*model.Meter, error) {
	meter, err := s.meterRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMeterNotFound) {
			return nil, ErrMeterNotFound
		}
		return nil, err
	}
	return meter, nil
}

// DeleteMeter purges one meter and its reading, bill and payment history
// while leaving the customer's other meters untouched.
func (s *AccountService) DeleteMeter(ctx context.Context, id int64) (*model.CascadeResult, error) {
	var res *model.CascadeResult
	err := s.customerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.meterRepo.DeleteCascade(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrMeterNotFound) {
				return ErrMeterNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("meter deleted",
		"meter_id", id,
		"payments", res.Payments,
		"bills", res.Bills,
		"readings", res.Readings)
	return res, nil
}

func (s *AccountService) ListUtilityTypes(ctx context.Context) ([]*model.UtilityType, error) {
	return s.utilityRepo.List(ctx)
}
