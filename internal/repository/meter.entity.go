package repository

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

type MeterEntity struct {
	ID            int64              `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID    int64              `db:"customer_id"     gorm:"column:customer_id;not null;index"`
	Customer      *CustomerEntity    `                      gorm:"foreignKey:CustomerID;references:ID"`
	UtilityTypeID int64              `db:"utility_type_id" gorm:"column:utility_type_id;not null;index"`
	UtilityType   *UtilityTypeEntity `                      gorm:"foreignKey:UtilityTypeID;references:ID"`
	Status        string             `db:"status"          gorm:"column:status;not null;default:Active"`
	Location      string             `db:"location"        gorm:"column:location"`
	InstalledAt   time.Time          `db:"installed_at"    gorm:"column:installed_at;autoCreateTime"`
}

func (MeterEntity) TableName() string {
	return "meters"
}

func toMeterEntity(m *model.Meter) *MeterEntity {
	if m == nil {
		return nil
	}
	return &MeterEntity{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		UtilityTypeID: m.UtilityTypeID,
		Status:        string(m.Status),
		Location:      m.Location,
		InstalledAt:   m.InstalledAt,
	}
}

func toMeterModel(e *MeterEntity) *model.Meter {
	if e == nil {
		return nil
	}
	return &model.Meter{
		ID:            e.ID,
		CustomerID:    e.CustomerID,
		UtilityTypeID: e.UtilityTypeID,
		Status:        model.MeterStatus(e.Status),
		Location:      e.Location,
		InstalledAt:   e.InstalledAt,
	}
}
