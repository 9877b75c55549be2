package model

import (
	"errors"
	"time"
)

// Reading is a timestamped meter value reported by field staff.
// Readings on one meter are ordered by (ReadAt, ID); the ID tiebreak keeps
// the ordering deterministic when two readings share a date.
type Reading struct {
	ID         int64     `json:"id"`
	MeterID    int64     `json:"meter_id"`
	Value      float64   `json:"value"`
	ReadAt     time.Time `json:"read_at"`
	Notes      string    `json:"notes"`
	RecordedBy string    `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}


type ReadingCreateRequest struct {
	MeterID    int64
	Value      float64
	ReadAt     time.Time
	Notes      string
	RecordedBy string
}

func (p ReadingCreateRequest) Validate() error {
	if p.MeterID == 0 {
		return errors.New("meter_id is required")
	}
	if p.Value < 0 {
		return errors.New("reading value must not be negative")
	}
	if p.ReadAt.IsZero() {
		return errors.New("read_at is required")
	}
	if p.RecordedBy == "" {
		return errors.New("recorded_by is required")
	}
	return nil
}

// ReadingPreview is the computed billing view of a recorded reading
// before a bill exists for it.
type ReadingPreview struct {
	ReadingID     int64   `json:"reading_id"`
	MeterID       int64   `json:"meter_id"`
	CustomerID    int64   `json:"customer_id"`
	PreviousValue float64 `json:"previous_value"`
	CurrentValue  float64 `json:"current_value"`
	Consumption   float64 `json:"consumption"`
	AmountDue     float64 `json:"amount_due"`
}
