package repository

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

type ReadingEntity struct {
	ID         int64        `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	MeterID    int64        `db:"meter_id"    gorm:"column:meter_id;not null;index:idx_reading_meter_date"`
	Meter      *MeterEntity `                  gorm:"foreignKey:MeterID;references:ID"`
	Value      float64      `db:"value"       gorm:"column:value;not null"`
	ReadAt     time.Time    `db:"read_at"     gorm:"column:read_at;not null;index:idx_reading_meter_date"`
	Notes      string       `db:"notes"       gorm:"column:notes"`
	RecordedBy string       `db:"recorded_by" gorm:"column:recorded_by;not null"`
	CreatedAt  time.Time    `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (ReadingEntity) TableName() string {
	return "meter_readings"
}

func toReadingEntity(m *model.Reading) *ReadingEntity {
	if m == nil {
		return nil
	}
	return &ReadingEntity{
		ID:         m.ID,
		MeterID:    m.MeterID,
		Value:      m.Value,
		ReadAt:     m.ReadAt,
		Notes:      m.Notes,
		RecordedBy: m.RecordedBy,
		CreatedAt:  m.CreatedAt,
	}
}

func toReadingModel(e *ReadingEntity) *model.Reading {
	if e == nil {
		return nil
	}
	return &model.Reading{
		ID:         e.ID,
		MeterID:    e.MeterID,
		Value:      e.Value,
		ReadAt:     e.ReadAt,
		Notes:      e.Notes,
		RecordedBy: e.RecordedBy,
		CreatedAt:  e.CreatedAt,
	}
}

func toReadingModels(entities []*ReadingEntity) []*model.Reading {
	if entities == nil {
		return nil
	}
	models := make([]*model.Reading, len(entities))
	for i, e := range entities {
		models[i] = toReadingModel(e)
	}
	return models
}
