package repository

import (
	"context"
	"time"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

type ReportRepository struct {
	*pg.DB
}

func NewReportRepository(db *pg.DB) *ReportRepository {
	return &ReportRepository{
		db,
	}
}

// Defaulters lists customers carrying unpaid or overdue bills, worst first.
func (r *ReportRepository) Defaulters(ctx context.Context) ([]*model.Defaulter, error) {
	var rows []*model.Defaulter
	err := r.Read(ctx).Model(&BillEntity{}).
		Select(
			"customers.id AS customer_id",
			"customers.name AS customer_name",
			"customers.phone AS phone",
			"customers.customer_type AS customer_type",
			"COUNT(bills.id) AS unpaid_bills",
			"SUM(bills.amount_due) AS total_due",
		).
		Joins("JOIN customers ON customers.id = bills.customer_id").
		Where("bills.status IN ?", []string{
			string(model.BillStatusUnpaid),
			string(model.BillStatusOverdue),
		}).
		Group("customers.id, customers.name, customers.phone, customers.customer_type").
		Order("total_due DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConsumptionRanking sums billed consumption per customer per utility over
// [from, to), heaviest consumers first. Customers with nothing billed in
// the window are omitted. Ties share a rank.
func (r *ReportRepository) ConsumptionRanking(ctx context.Context, from, to time.Time) ([]*model.ConsumptionRank, error) {
	var rows []*model.ConsumptionRank
	err := r.Read(ctx).Model(&BillEntity{}).
		Select(
			"customers.id AS customer_id",
			"customers.name AS customer_name",
			"utility_types.name AS utility",
			"utility_types.unit AS unit",
			"SUM(bills.consumption) AS total_consumption",
		).
		Joins("JOIN customers ON customers.id = bills.customer_id").
		Joins("JOIN meters ON meters.id = bills.meter_id").
		Joins("JOIN utility_types ON utility_types.id = meters.utility_type_id").
		Where("bills.bill_date >= ? AND bills.bill_date < ?", from, to).
		Group("customers.id, customers.name, utility_types.name, utility_types.unit").
		Having("SUM(bills.consumption) > 0").
		Order("total_consumption DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if i > 0 && row.TotalConsumption == rows[i-1].TotalConsumption {
			row.Rank = rows[i-1].Rank
			continue
		}
		row.Rank = i + 1
	}
	return rows, nil
}

type paidRow struct {
	Utility string
	Amount  float64
	PaidAt  time.Time
}

func (r *ReportRepository) paidRows(ctx context.Context, from, to time.Time) ([]paidRow, error) {
	var rows []paidRow
	err := r.Read(ctx).Model(&PaymentEntity{}).
		Select(
			"utility_types.name AS utility",
			"payments.amount AS amount",
			"payments.paid_at AS paid_at",
		).
		Joins("JOIN bills ON bills.id = payments.bill_id").
		Joins("JOIN meters ON meters.id = bills.meter_id").
		Joins("JOIN utility_types ON utility_types.id = meters.utility_type_id").
		Where("payments.paid_at >= ? AND payments.paid_at < ?", from, to).
		Order("payments.paid_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MonthlyRevenue aggregates collected payments per utility per calendar
// month. Bucketing happens in Go because month truncation syntax differs
// between the production database and the one used in tests.
func (r *ReportRepository) MonthlyRevenue(ctx context.Context, from, to time.Time) ([]*model.MonthlyRevenue, error) {
	rows, err := r.paidRows(ctx, from, to)
	if err != nil {
		return nil, err
	}

	type key struct {
		utility string
		month   string
	}
	totals := make(map[key]float64)
	var order []key
	for _, row := range rows {
		k := key{utility: row.Utility, month: row.PaidAt.UTC().Format("2006-01")}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += row.Amount
	}

	out := make([]*model.MonthlyRevenue, 0, len(order))
	for _, k := range order {
		out = append(out, &model.MonthlyRevenue{
			Utility: k.utility,
			Month:   k.month,
			Revenue: totals[k],
		})
	}
	return out, nil
}

// DailyCollections aggregates payments per day per utility over [from, to).
func (r *ReportRepository) DailyCollections(ctx context.Context, from, to time.Time) (*model.CollectionSummary, error) {
	rows, err := r.paidRows(ctx, from, to)
	if err != nil {
		return nil, err
	}

	type key struct {
		date    string
		utility string
	}
	buckets := make(map[key]*model.DailyCollection)
	var order []key
	summary := &model.CollectionSummary{From: from, To: to}
	for _, row := range rows {
		k := key{date: row.PaidAt.UTC().Format("2006-01-02"), utility: row.Utility}
		b, ok := buckets[k]
		if !ok {
			b = &model.DailyCollection{Date: k.date, Utility: k.utility}
			buckets[k] = b
			order = append(order, k)
		}
		b.Payments++
		b.Total += row.Amount
		summary.GrandTotal += row.Amount
	}

	summary.Rows = make([]model.DailyCollection, 0, len(order))
	for _, k := range order {
		summary.Rows = append(summary.Rows, *buckets[k])
	}
	return summary, nil
}
