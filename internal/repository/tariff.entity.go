package repository

import (
	"github.com/meterline/billing/internal/model"
)

type TariffEntity struct {
	ID            int64              `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	UtilityTypeID int64              `db:"utility_type_id" gorm:"column:utility_type_id;not null;index"`
	UtilityType   *UtilityTypeEntity `                      gorm:"foreignKey:UtilityTypeID;references:ID"`
	Name          string             `db:"name"            gorm:"column:name;not null"`
	Rate          float64            `db:"rate"            gorm:"column:rate;not null"`
	MinUnits      float64            `db:"min_units"       gorm:"column:min_units;not null;default:0"`
	MaxUnits      *float64           `db:"max_units"       gorm:"column:max_units"` // nullable, nil = top bracket
	FixedCharge   float64            `db:"fixed_charge"    gorm:"column:fixed_charge;not null;default:0"`
}

func (TariffEntity) TableName() string {
	return "tariffs"
}

func toTariffEntity(m *model.Tariff) *TariffEntity {
	if m == nil {
		return nil
	}
	return &TariffEntity{
		ID:            m.ID,
		UtilityTypeID: m.UtilityTypeID,
		Name:          m.Name,
		Rate:          m.Rate,
		MinUnits:      m.MinUnits,
		MaxUnits:      m.MaxUnits,
		FixedCharge:   m.FixedCharge,
	}
}

func toTariffModel(e *TariffEntity) *model.Tariff {
	if e == nil {
		return nil
	}
	return &model.Tariff{
		ID:            e.ID,
		UtilityTypeID: e.UtilityTypeID,
		Name:          e.Name,
		Rate:          e.Rate,
		MinUnits:      e.MinUnits,
		MaxUnits:      e.MaxUnits,
		FixedCharge:   e.FixedCharge,
	}
}

func toTariffModels(entities []*TariffEntity) []*model.Tariff {
	if entities == nil {
		return nil
	}
	models := make([]*model.Tariff, len(entities))
	for i, e := range entities {
		models[i] = toTariffModel(e)
	}
	return models
}
