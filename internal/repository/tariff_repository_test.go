package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestTariffRepository_ListByUtilityType(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTariffRepository(db.DB)
	ctx := context.Background()

	_, utility, _ := db.seedAccount(t)
	water := &UtilityTypeEntity{Name: "Water", Unit: "m3"}
	require.NoError(t, db.rawDB.Create(water).Error)

	// inserted out of order on purpose
	for _, tr := range []*model.Tariff{
		{UtilityTypeID: utility.ID, Name: "Mid", Rate: 12, MinUnits: 61, MaxUnits: f64(120)},
		{UtilityTypeID: utility.ID, Name: "Base", Rate: 8, MinUnits: 0, MaxUnits: f64(60)},
		{UtilityTypeID: utility.ID, Name: "Top", Rate: 20, MinUnits: 121},
		{UtilityTypeID: water.ID, Name: "Flat", Rate: 30, MinUnits: 0},
	} {
		_, err := repo.Create(ctx, tr)
		require.NoError(t, err)
	}

	t.Run("ordered by min units", func(t *testing.T) {
		tariffs, err := repo.ListByUtilityType(ctx, utility.ID)
		require.NoError(t, err)
		require.Len(t, tariffs, 3)
		assert.Equal(t, "Base", tariffs[0].Name)
		assert.Equal(t, "Mid", tariffs[1].Name)
		assert.Equal(t, "Top", tariffs[2].Name)
		assert.Nil(t, tariffs[2].MaxUnits)
	})

	t.Run("scoped to the utility", func(t *testing.T) {
		tariffs, err := repo.ListByUtilityType(ctx, water.ID)
		require.NoError(t, err)
		require.Len(t, tariffs, 1)
		assert.Equal(t, "Flat", tariffs[0].Name)
	})
}

func TestTariffRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTariffRepository(db.DB)
	ctx := context.Background()

	customer, utility, meter := db.seedAccount(t)

	tariff, err := repo.Create(ctx, &model.Tariff{
		UtilityTypeID: utility.ID, Name: "Base", Rate: 8, MinUnits: 0,
	})
	require.NoError(t, err)

	t.Run("unknown tariff", func(t *testing.T) {
		err := repo.Delete(ctx, 99999)
		assert.ErrorIs(t, err, ErrTariffNotFound)
	})

	t.Run("deletes unused tariff", func(t *testing.T) {
		victim, err := repo.Create(ctx, &model.Tariff{
			UtilityTypeID: utility.ID, Name: "Temp", Rate: 9, MinUnits: 0,
		})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, victim.ID))
		_, err = repo.Get(ctx, victim.ID)
		assert.ErrorIs(t, err, ErrTariffNotFound)
	})

	t.Run("refuses once bills reference the utility", func(t *testing.T) {
		reading := db.seedReading(t, meter.ID, 100, "2026-01-01")
		require.NoError(t, db.rawDB.Create(&BillEntity{
			CustomerID: customer.ID,
			MeterID:    meter.ID,
			ReadingID:  reading.ID,
			BillDate:   date(t, "2026-01-02"),
			DueDate:    date(t, "2026-01-16"),
			AmountDue:  800,
			Status:     "Unpaid",
		}).Error)

		err := repo.Delete(ctx, tariff.ID)
		assert.ErrorIs(t, err, ErrTariffInUse)

		_, err = repo.Get(ctx, tariff.ID)
		require.NoError(t, err)
	})
}
