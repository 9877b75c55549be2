package model

import "time"

// CascadeResult reports how many rows each table lost during a cascade delete.
type CascadeResult struct {
	Payments  int64 `json:"payments"`
	Bills     int64 `json:"bills"`
	Readings  int64 `json:"readings"`
	Meters    int64 `json:"meters"`
	Customers int64 `json:"customers"`
}

// Defaulter is one row of the manager's defaulters report: a customer
// with at least one unpaid or overdue bill.
type Defaulter struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	CustomerType string  `json:"customer_type"`
	UnpaidBills  int64   `json:"unpaid_bills"`
	TotalDue     float64 `json:"total_due"`
}

// MonthlyRevenue is payments collected per utility per calendar month.
type MonthlyRevenue struct {
	Utility string  `json:"utility"`
	Month   string  `json:"month"` // "2024-02"
	Revenue float64 `json:"revenue"`
}

// DailyCollection is the cashier log: payment count and total per day.
type DailyCollection struct {
	Date     string  `json:"date"` // "2024-02-01"
	Utility  string  `json:"utility"`
	Payments int64   `json:"payments"`
	Total    float64 `json:"total"`
}

// ConsumptionRank is one row of the usage-patterns report: a customer's
// total billed consumption for a utility over the window, heaviest first.
type ConsumptionRank struct {
	Rank             int     `json:"rank"`
	CustomerID       int64   `json:"customer_id"`
	CustomerName     string  `json:"customer_name"`
	Utility          string  `json:"utility"`
	Unit             string  `json:"unit"`
	TotalConsumption float64 `json:"total_consumption"`
}

// CollectionSummary wraps a date-ranged collections query.
type CollectionSummary struct {
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Rows       []DailyCollection `json:"rows"`
	GrandTotal float64           `json:"grand_total"`
}
