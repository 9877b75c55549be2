package model

import "time"

// Event types carried on the billing stream.
const (
	EventBillGenerated   = "bill.generated"
	EventPaymentRecorded = "payment.recorded"
)

// BillGeneratedEvent is published after a bill is committed so downstream
// notifiers can tell the customer what they owe.
type BillGeneratedEvent struct {
	BillID      int64     `json:"bill_id"`
	CustomerID  int64     `json:"customer_id"`
	MeterID     int64     `json:"meter_id"`
	ReadingID   int64     `json:"reading_id"`
	Consumption float64   `json:"consumption"`
	AmountDue   float64   `json:"amount_due"`
	DueDate     time.Time `json:"due_date"`
}

// PaymentRecordedEvent is published after a settlement commits.
type PaymentRecordedEvent struct {
	PaymentID  int64   `json:"payment_id"`
	BillID     int64   `json:"bill_id"`
	CustomerID int64   `json:"customer_id"`
	Reference  string  `json:"reference"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
}
