package model

import "time"

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CustomerType   string    `json:"customer_type"` // e.g. "Domestic" | "Commercial"
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	ServiceAddress string    `json:"service_address"`
	BillingAddress string    `json:"billing_address"`
	CreatedAt      time.Time `json:"created_at"`
}

