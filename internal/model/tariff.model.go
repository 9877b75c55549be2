package model

// Tariff is one pricing bracket for a utility type. Brackets for one
// utility form an ordered set by ascending MinUnits; MaxUnits == nil is
// the unbounded top bracket. A utility with a single bracket is billed
// flat: consumption times Rate.
type Tariff struct {
	ID            int64    `json:"id"`
	UtilityTypeID int64    `json:"utility_type_id"`
	Name          string   `json:"name"`
	Rate          float64  `json:"rate"` // per-unit price inside the bracket
	MinUnits      float64  `json:"min_units"`
	MaxUnits      *float64 `json:"max_units"` // nil = unbounded
	FixedCharge   float64  `json:"fixed_charge"`
}

// TariffPreview prices a hypothetical consumption figure against a
// utility's bracket set without touching any reading or bill.
type TariffPreview struct {
	UtilityTypeID int64   `json:"utility_type_id"`
	Consumption   float64 `json:"consumption"`
	Amount        float64 `json:"amount"`
	BracketCount  int     `json:"bracket_count"`
}

