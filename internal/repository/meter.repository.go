package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrMeterNotFound = errors.New("meter not found")
)

type MeterRepository struct {
	*pg.DB
}

func NewMeterRepository(db *pg.DB) *MeterRepository {
	return &MeterRepository{
		db,
	}
}

func (r *MeterRepository) Create(ctx context.Context, m *model.Meter) (*model.Meter, error) {
	entity := toMeterEntity(m)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMeterModel(entity), nil
}

func (r *MeterRepository) Get(ctx context.Context, id int64) (*model.Meter, error) {
	var entity MeterEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeterNotFound
		}
		return nil, err
	}
	return toMeterModel(&entity), nil
}

// DeleteCascade removes the meter with its readings, the bills priced from
// those readings and their payments. Run inside WithinTransaction.
func (r *MeterRepository) DeleteCascade(ctx context.Context, id int64) (*model.CascadeResult, error) {
	res := &model.CascadeResult{}

	readingIDs := r.Write(ctx).Model(&ReadingEntity{}).Select("id").Where("meter_id = ?", id)
	billIDs := r.Write(ctx).Model(&BillEntity{}).Select("id").Where("reading_id IN (?)", readingIDs)

	out := r.Write(ctx).Where("bill_id IN (?)", billIDs).Delete(&PaymentEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Payments = out.RowsAffected

	readingIDs = r.Write(ctx).Model(&ReadingEntity{}).Select("id").Where("meter_id = ?", id)
	out = r.Write(ctx).Where("reading_id IN (?)", readingIDs).Delete(&BillEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Bills = out.RowsAffected

	out = r.Write(ctx).Where("meter_id = ?", id).Delete(&ReadingEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Readings = out.RowsAffected

	out = r.Write(ctx).Where("id = ?", id).Delete(&MeterEntity{})
	if out.Error != nil {
		return nil, out.Error
	}
	res.Meters = out.RowsAffected

	if res.Meters == 0 {
		return nil, ErrMeterNotFound
	}
	return res, nil
}
