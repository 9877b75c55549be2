package model

import (
	"errors"
	"time"
)

type Payment struct {
	ID         int64     `json:"id"`
	BillID     int64     `json:"bill_id"`
	Reference  string    `json:"reference"` // receipt reference handed to the payer
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"` // "Cash" | "Card" | "Transfer"
	PaidAt     time.Time `json:"paid_at"`
	RecordedBy string    `json:"recorded_by"`
}


type PaymentCreateRequest struct {
	BillID     int64
	Amount     float64
	Method     string
	RecordedBy string
}

func (p PaymentCreateRequest) Validate() error {
	if p.BillID == 0 {
		return errors.New("bill_id is required")
	}
	if p.Method == "" {
		return errors.New("payment method is required")
	}
	if p.RecordedBy == "" {
		return errors.New("recorded_by is required")
	}
	return nil
}
