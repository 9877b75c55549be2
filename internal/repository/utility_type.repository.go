package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrUtilityTypeNotFound = errors.New("utility type not found")
)

type UtilityTypeRepository struct {
	*pg.DB
}

func NewUtilityTypeRepository(db *pg.DB) *UtilityTypeRepository {
	return &UtilityTypeRepository{
		db,
	}
}

func (r *UtilityTypeRepository) Get(ctx context.Context, id int64) (*model.UtilityType, error) {
	var entity UtilityTypeEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUtilityTypeNotFound
		}
		return nil, err
	}
	return toUtilityTypeModel(&entity), nil
}

func (r *UtilityTypeRepository) List(ctx context.Context) ([]*model.UtilityType, error) {
	var entities []*UtilityTypeEntity
	if err := r.Read(ctx).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	models := make([]*model.UtilityType, len(entities))
	for i, e := range entities {
		models[i] = toUtilityTypeModel(e)
	}
	return models, nil
}
