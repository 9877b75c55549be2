package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCustomerModel(entity), nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// DeleteCascade removes the customer together with every dependent row,
// innermost first: payments on the customer's bills, the bills, the readings
// of the customer's meters, the meters, then the customer itself. Callers
// must run it inside WithinTransaction so a failure rolls everything back.
func (r *CustomerRepository) DeleteCascade(ctx context.Context, id int64) (*model.CascadeResult, error) {
	res := &model.CascadeResult{}

	billIDs := r.Write(ctx).Model(&BillEntity{}).Select("id").Where("customer_id = ?", id)
	out := r.Write(ctx).Where("bill_id IN (?)", billIDs).Delete(&PaymentEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Payments = out.RowsAffected

	out = r.Write(ctx).Where("customer_id = ?", id).Delete(&BillEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Bills = out.RowsAffected

	meterIDs := r.Write(ctx).Model(&MeterEntity{}).Select("id").Where("customer_id = ?", id)
	out = r.Write(ctx).Where("meter_id IN (?)", meterIDs).Delete(&ReadingEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Readings = out.RowsAffected

	out = r.Write(ctx).Where("customer_id = ?", id).Delete(&MeterEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Meters = out.RowsAffected

	out = r.Write(ctx).Where("id = ?", id).Delete(&CustomerEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Customers = out.RowsAffected

	if res.Customers == 0 {
		return nil, ErrCustomerNotFound
	}
	return res, nil
}
