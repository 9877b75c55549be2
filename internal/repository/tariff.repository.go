package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrTariffNotFound = errors.New("tariff not found")
	ErrTariffInUse    = errors.New("tariff is referenced by existing bills")
)

type TariffRepository struct {
	*pg.DB
}

func NewTariffRepository(db *pg.DB) *TariffRepository {
	return &TariffRepository{
		db,
	}
}

func (r *TariffRepository) Create(ctx context.Context, t *model.Tariff) (*model.Tariff, error) {
	entity := toTariffEntity(t)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTariffModel(entity), nil
}

func (r *TariffRepository) Get(ctx context.Context, id int64) (*model.Tariff, error) {
	var entity TariffEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTariffNotFound
		}
		return nil, err
	}
	return toTariffModel(&entity), nil
}

// ListByUtilityType returns the utility's brackets ordered by ascending
// MinUnits, which is the walk order the tariff resolver depends on.
func (r *TariffRepository) ListByUtilityType(ctx context.Context, utilityTypeID int64) ([]*model.Tariff, error) {
	var entities []*TariffEntity
	err := r.Read(ctx).
		Where("utility_type_id = ?", utilityTypeID).
		Order("min_units ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTariffModels(entities), nil
}

// Delete removes a tariff unless bills exist for its utility type that were
// priced while it applied. Billed history must stay reconstructable, so an
// in-use tariff is refused rather than orphaned.
func (r *TariffRepository) Delete(ctx context.Context, id int64) error {
	var entity TariffEntity
	err := r.Write(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTariffNotFound
		}
		return err
	}

	var count int64
	meterIDs := r.Write(ctx).Model(&MeterEntity{}).Select("id").Where("utility_type_id = ?", entity.UtilityTypeID)
	err = r.Write(ctx).Model(&BillEntity{}).
		Where("meter_id IN (?)", meterIDs).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTariffInUse
	}

	out := r.Write(ctx).Where("id = ?", id).Delete(&TariffEntity{})
	if out.Error != nil {
		return out.Error
	}
	if out.RowsAffected == 0 {
		return ErrTariffNotFound
	}
	return nil
}
