package model

import (
	"errors"
	"time"
)

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	BillStatusUnpaid  BillStatus = "Unpaid"
	BillStatusOverdue BillStatus = "Overdue"
	BillStatusPaid    BillStatus = "Paid"
)

type Bill struct {
	ID                   int64      `json:"id"`
	CustomerID           int64      `json:"customer_id"`
	MeterID              int64      `json:"meter_id"`
	ReadingID            int64      `json:"reading_id"`
	BillDate             time.Time  `json:"bill_date"`
	DueDate              time.Time  `json:"due_date"`
	PreviousReadingValue float64    `json:"previous_reading_value"`
	CurrentReadingValue  float64    `json:"current_reading_value"`
	Consumption          float64    `json:"consumption"`
	AmountDue            float64    `json:"amount_due"`
	Status               BillStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
}

// GenerateBillRequest is the input for turning an unbilled reading into a bill.
type GenerateBillRequest struct {
	ReadingID int64
	BillDate  time.Time // zero value = today
}

func (p GenerateBillRequest) Validate() error {
	if p.ReadingID == 0 {
		return errors.New("reading_id is required")
	}
	return nil
}

// BillFilter controls ledger queries.
type BillFilter struct {
	CustomerID *int64
	MeterID    *int64
	Statuses   []BillStatus // IN (...)
	From       *time.Time
	To         *time.Time
	Limit      int  // default 50
	Offset     int  // for pagination
	Desc       bool // order by bill_date
}
