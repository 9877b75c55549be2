package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/internal/model"
)

func (db *testDB) seedReading(t *testing.T, meterID int64, value float64, day string) *ReadingEntity {
	t.Helper()
	r := &ReadingEntity{
		MeterID:    meterID,
		Value:      value,
		ReadAt:     date(t, day),
		RecordedBy: "reader-7",
	}
	require.NoError(t, db.rawDB.Create(r).Error)
	return r
}

func TestBillRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillRepository(db.DB)
	ctx := context.Background()

	customer, _, meter := db.seedAccount(t)
	reading := db.seedReading(t, meter.ID, 180, "2026-02-01")

	newBill := func() *model.Bill {
		return &model.Bill{
			CustomerID:           customer.ID,
			MeterID:              meter.ID,
			ReadingID:            reading.ID,
			BillDate:             date(t, "2026-02-02"),
			DueDate:              date(t, "2026-02-16"),
			PreviousReadingValue: 100,
			CurrentReadingValue:  180,
			Consumption:          80,
			AmountDue:            640,
			Status:               model.BillStatusUnpaid,
		}
	}

	t.Run("create bill successfully", func(t *testing.T) {
		created, err := repo.Create(ctx, newBill())
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, reading.ID, created.ReadingID)
		assert.Equal(t, 640.0, created.AmountDue)
		assert.Equal(t, model.BillStatusUnpaid, created.Status)
	})

	t.Run("second bill for the same reading is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, newBill())
		assert.ErrorIs(t, err, ErrDuplicateBill)
	})
}

func TestBillRepository_Get(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillRepository(db.DB)
	ctx := context.Background()

	customer, _, meter := db.seedAccount(t)
	reading := db.seedReading(t, meter.ID, 180, "2026-02-01")

	created, err := repo.Create(ctx, &model.Bill{
		CustomerID: customer.ID,
		MeterID:    meter.ID,
		ReadingID:  reading.ID,
		BillDate:   date(t, "2026-02-02"),
		DueDate:    date(t, "2026-02-16"),
		AmountDue:  640,
		Status:     model.BillStatusUnpaid,
	})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("found by reading", func(t *testing.T) {
		got, err := repo.GetByReadingID(ctx, reading.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("found for update", func(t *testing.T) {
		got, err := repo.GetForUpdate(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 99999)
		assert.ErrorIs(t, err, ErrBillNotFound)
	})
}

func TestBillRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillRepository(db.DB)
	ctx := context.Background()

	customer, _, meter := db.seedAccount(t)
	reading := db.seedReading(t, meter.ID, 180, "2026-02-01")

	created, err := repo.Create(ctx, &model.Bill{
		CustomerID: customer.ID,
		MeterID:    meter.ID,
		ReadingID:  reading.ID,
		BillDate:   date(t, "2026-02-02"),
		DueDate:    date(t, "2026-02-16"),
		AmountDue:  640,
		Status:     model.BillStatusUnpaid,
	})
	require.NoError(t, err)

	t.Run("flip unpaid to paid", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, created.ID, model.BillStatusUnpaid, model.BillStatusPaid)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusPaid, got.Status)
	})

	t.Run("stale expectation is rejected", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, created.ID, model.BillStatusUnpaid, model.BillStatusPaid)
		assert.ErrorIs(t, err, ErrBillNotFound)
	})
}

func TestBillRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillRepository(db.DB)
	ctx := context.Background()

	customer, _, meter := db.seedAccount(t)

	days := []string{"2026-01-01", "2026-02-01", "2026-03-01", "2026-04-01", "2026-05-01"}
	for i, day := range days {
		reading := db.seedReading(t, meter.ID, float64(100*(i+1)), day)
		status := model.BillStatusUnpaid
		if i%2 == 1 {
			status = model.BillStatusPaid
		}
		_, err := repo.Create(ctx, &model.Bill{
			CustomerID: customer.ID,
			MeterID:    meter.ID,
			ReadingID:  reading.ID,
			BillDate:   date(t, day),
			DueDate:    date(t, day).AddDate(0, 0, 14),
			AmountDue:  float64(100 * (i + 1)),
			Status:     status,
		})
		require.NoError(t, err)
	}

	t.Run("list by customer", func(t *testing.T) {
		bills, total, err := repo.List(ctx, model.BillFilter{CustomerID: &customer.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, bills, 5)
	})

	t.Run("filter by status", func(t *testing.T) {
		bills, total, err := repo.List(ctx, model.BillFilter{
			CustomerID: &customer.ID,
			Statuses:   []model.BillStatus{model.BillStatusPaid},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, b := range bills {
			assert.Equal(t, model.BillStatusPaid, b.Status)
		}
	})

	t.Run("date window", func(t *testing.T) {
		from := date(t, "2026-02-01")
		to := date(t, "2026-04-01")
		bills, total, err := repo.List(ctx, model.BillFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, bills, 2)
	})

	t.Run("pagination and descending order", func(t *testing.T) {
		bills, total, err := repo.List(ctx, model.BillFilter{
			CustomerID: &customer.ID,
			Limit:      2,
			Offset:     1,
			Desc:       true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, bills, 2)
		assert.True(t, bills[0].BillDate.After(bills[1].BillDate))
	})
}

func TestBillRepository_MarkOverdue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillRepository(db.DB)
	ctx := context.Background()

	customer, _, meter := db.seedAccount(t)

	seed := func(day string, status model.BillStatus) *model.Bill {
		reading := db.seedReading(t, meter.ID, 100, day)
		b, err := repo.Create(ctx, &model.Bill{
			CustomerID: customer.ID,
			MeterID:    meter.ID,
			ReadingID:  reading.ID,
			BillDate:   date(t, day),
			DueDate:    date(t, day).AddDate(0, 0, 14),
			AmountDue:  500,
			Status:     status,
		})
		require.NoError(t, err)
		return b
	}

	pastDue := seed("2026-01-01", model.BillStatusUnpaid)
	paid := seed("2026-01-02", model.BillStatusPaid)
	current := seed("2026-03-01", model.BillStatusUnpaid)

	asOf := date(t, "2026-02-01")

	t.Run("flips only unpaid past-due bills", func(t *testing.T) {
		n, err := repo.MarkOverdue(ctx, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.Get(ctx, pastDue.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusOverdue, got.Status)

		got, err = repo.Get(ctx, paid.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusPaid, got.Status)

		got, err = repo.Get(ctx, current.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BillStatusUnpaid, got.Status)
	})

	t.Run("second sweep is a no-op", func(t *testing.T) {
		n, err := repo.MarkOverdue(ctx, asOf)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
