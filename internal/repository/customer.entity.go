package repository

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

type CustomerEntity struct {
	ID             int64     `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string    `db:"name"            gorm:"column:name;not null"`
	CustomerType   string    `db:"customer_type"   gorm:"column:customer_type;not null;default:Domestic"`
	Email          string    `db:"email"           gorm:"column:email"`
	Phone          string    `db:"phone"           gorm:"column:phone"`
	ServiceAddress string    `db:"service_address" gorm:"column:service_address"`
	BillingAddress string    `db:"billing_address" gorm:"column:billing_address"`
	CreatedAt      time.Time `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		ID:             m.ID,
		Name:           m.Name,
		CustomerType:   m.CustomerType,
		Email:          m.Email,
		Phone:          m.Phone,
		ServiceAddress: m.ServiceAddress,
		BillingAddress: m.BillingAddress,
		CreatedAt:      m.CreatedAt,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:             e.ID,
		Name:           e.Name,
		CustomerType:   e.CustomerType,
		Email:          e.Email,
		Phone:          e.Phone,
		ServiceAddress: e.ServiceAddress,
		BillingAddress: e.BillingAddress,
		CreatedAt:      e.CreatedAt,
	}
}
