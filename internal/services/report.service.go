package services

import (
	"context"
	"time"

	"github.com/meterline/billing/internal/model"
)

type ReportRepository interface {
	Defaulters(ctx context.Context) ([]*model.Defaulter, error)
	MonthlyRevenue(ctx context.Context, from, to time.Time) ([]*model.MonthlyRevenue, error)
	DailyCollections(ctx context.Context, from, to time.Time) (*model.CollectionSummary, error)
	ConsumptionRanking(ctx context.Context, from, to time.Time) ([]*model.ConsumptionRank, error)
}

// RevenueMonths is how far back the revenue report looks.
const RevenueMonths = 6

// ConsumptionWindowDays is how far back the usage-patterns report looks.
const ConsumptionWindowDays = 30

type ReportService struct {
	reportRepo ReportRepository
	now        NowFunc
}

func NewReportService(reportRepo ReportRepository) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		now:        defaultNow,
	}
}

func (s *ReportService) Defaulters(ctx context.Context) ([]*model.Defaulter, error) {
	return s.reportRepo.Defaulters(ctx)
}

// MonthlyRevenue covers the last RevenueMonths calendar months up to now.
func (s *ReportService) MonthlyRevenue(ctx context.Context) ([]*model.MonthlyRevenue, error) {
	now := s.now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := firstOfMonth.AddDate(0, -(RevenueMonths - 1), 0)
	return s.reportRepo.MonthlyRevenue(ctx, from, now)
}

// ConsumptionRanking covers the trailing ConsumptionWindowDays days.
func (s *ReportService) ConsumptionRanking(ctx context.Context) ([]*model.ConsumptionRank, error) {
	now := s.now()
	return s.reportRepo.ConsumptionRanking(ctx, now.AddDate(0, 0, -ConsumptionWindowDays), now)
}

func (s *ReportService) DailyCollections(ctx context.Context, from, to time.Time) (*model.CollectionSummary, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.reportRepo.DailyCollections(ctx, from, to)
}
