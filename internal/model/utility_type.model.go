package model

// UtilityType is static reference data: what a meter measures and in
// which unit it is billed.
type UtilityType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"` // "Electricity" | "Water" | "Gas"
	Unit string `json:"unit"` // "kWh" | "m3"
}

