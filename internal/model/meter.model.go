package model

import "time"

type MeterStatus string

const (
	MeterStatusActive   MeterStatus = "Active"
	MeterStatusInactive MeterStatus = "Inactive"
	MeterStatusFaulty   MeterStatus = "Faulty"
)

type Meter struct {
	ID            int64       `json:"id"`
	CustomerID    int64       `json:"customer_id"`
	UtilityTypeID int64       `json:"utility_type_id"`
	Status        MeterStatus `json:"status"`
	Location      string      `json:"location"`
	InstalledAt   time.Time   `json:"installed_at"`
}

