package repository

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

type PaymentEntity struct {
	ID         int64       `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	BillID     int64       `db:"bill_id"     gorm:"column:bill_id;not null;index"`
	Bill       *BillEntity `                  gorm:"foreignKey:BillID;references:ID"`
	Reference  string      `db:"reference"   gorm:"column:reference;not null;unique"`
	Amount     float64     `db:"amount"      gorm:"column:amount;not null"`
	Method     string      `db:"method"      gorm:"column:method;not null"`
	PaidAt     time.Time   `db:"paid_at"     gorm:"column:paid_at;not null"`
	RecordedBy string      `db:"recorded_by" gorm:"column:recorded_by;not null"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:         m.ID,
		BillID:     m.BillID,
		Reference:  m.Reference,
		Amount:     m.Amount,
		Method:     m.Method,
		PaidAt:     m.PaidAt,
		RecordedBy: m.RecordedBy,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:         e.ID,
		BillID:     e.BillID,
		Reference:  e.Reference,
		Amount:     e.Amount,
		Method:     e.Method,
		PaidAt:     e.PaidAt,
		RecordedBy: e.RecordedBy,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
