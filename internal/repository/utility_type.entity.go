package repository

import (
	"github.com/meterline/billing/internal/model"
)

type UtilityTypeEntity struct {
	ID   int64  `db:"id"   gorm:"primaryKey;autoIncrement;column:id"`
	Name string `db:"name" gorm:"column:name;not null;unique"`
	Unit string `db:"unit" gorm:"column:unit;not null"`
}

func (UtilityTypeEntity) TableName() string {
	return "utility_types"
}

func toUtilityTypeModel(e *UtilityTypeEntity) *model.UtilityType {
	if e == nil {
		return nil
	}
	return &model.UtilityType{
		ID:   e.ID,
		Name: e.Name,
		Unit: e.Unit,
	}
}
