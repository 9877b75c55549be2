package repository

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

type BillEntity struct {
	ID                   int64          `db:"id"                     gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID           int64          `db:"customer_id"            gorm:"column:customer_id;not null;index"`
	MeterID              int64          `db:"meter_id"               gorm:"column:meter_id;not null;index"`
	ReadingID            int64          `db:"reading_id"             gorm:"column:reading_id;not null;uniqueIndex"`
	Reading              *ReadingEntity `                             gorm:"foreignKey:ReadingID;references:ID"`
	BillDate             time.Time      `db:"bill_date"              gorm:"column:bill_date;not null"`
	DueDate              time.Time      `db:"due_date"               gorm:"column:due_date;not null"`
	PreviousReadingValue float64        `db:"previous_reading_value" gorm:"column:previous_reading_value;not null"`
	CurrentReadingValue  float64        `db:"current_reading_value"  gorm:"column:current_reading_value;not null"`
	Consumption          float64        `db:"consumption"            gorm:"column:consumption;not null"`
	AmountDue            float64        `db:"amount_due"             gorm:"column:amount_due;not null"`
	Status               string         `db:"status"                 gorm:"column:status;not null;default:Unpaid;index"`
	CreatedAt            time.Time      `db:"created_at"             gorm:"column:created_at;autoCreateTime"`
}

func (BillEntity) TableName() string {
	return "bills"
}

func toBillEntity(m *model.Bill) *BillEntity {
	if m == nil {
		return nil
	}
	return &BillEntity{
		ID:                   m.ID,
		CustomerID:           m.CustomerID,
		MeterID:              m.MeterID,
		ReadingID:            m.ReadingID,
		BillDate:             m.BillDate,
		DueDate:              m.DueDate,
		PreviousReadingValue: m.PreviousReadingValue,
		CurrentReadingValue:  m.CurrentReadingValue,
		Consumption:          m.Consumption,
		AmountDue:            m.AmountDue,
		Status:               string(m.Status),
		CreatedAt:            m.CreatedAt,
	}
}

func toBillModel(e *BillEntity) *model.Bill {
	if e == nil {
		return nil
	}
	return &model.Bill{
		ID:                   e.ID,
		CustomerID:           e.CustomerID,
		MeterID:              e.MeterID,
		ReadingID:            e.ReadingID,
		BillDate:             e.BillDate,
		DueDate:              e.DueDate,
		PreviousReadingValue: e.PreviousReadingValue,
		CurrentReadingValue:  e.CurrentReadingValue,
		Consumption:          e.Consumption,
		AmountDue:            e.AmountDue,
		Status:               model.BillStatus(e.Status),
		CreatedAt:            e.CreatedAt,
	}
}

func toBillModels(entities []*BillEntity) []*model.Bill {
	if entities == nil {
		return nil
	}
	models := make([]*model.Bill, len(entities))
	for i, e := range entities {
		models[i] = toBillModel(e)
	}
	return models
}
