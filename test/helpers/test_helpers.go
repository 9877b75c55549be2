package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/pkg/pg"
	"github.com/meterline/billing/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.UtilityTypeEntity{},
		&repository.CustomerEntity{},
		&repository.MeterEntity{},
		&repository.TariffEntity{},
		&repository.ReadingEntity{},
		&repository.BillEntity{},
		&repository.PaymentEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.Adapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestUtilityType(t *testing.T, db *pg.DB, name, unit string) *repository.UtilityTypeEntity {
	ctx := context.Background()
	ut := &repository.UtilityTypeEntity{
		Name: name,
		Unit: unit,
	}
	err := db.Write(ctx).Create(ut).Error
	require.NoError(t, err)
	return ut
}

func CreateTestCustomer(t *testing.T, db *pg.DB, name, customerType string) *repository.CustomerEntity {
	ctx := context.Background()
	customer := &repository.CustomerEntity{
		Name:         name,
		CustomerType: customerType,
	}
	err := db.Write(ctx).Create(customer).Error
	require.NoError(t, err)
	return customer
}

func CreateTestMeter(t *testing.T, db *pg.DB, customerID, utilityTypeID int64) *repository.MeterEntity {
	ctx := context.Background()
	meter := &repository.MeterEntity{
		CustomerID:    customerID,
		UtilityTypeID: utilityTypeID,
		Status:        "Active",
	}
	err := db.Write(ctx).Create(meter).Error
	require.NoError(t, err)
	return meter
}

func CreateTestTariff(t *testing.T, db *pg.DB, utilityTypeID int64, rate, minUnits float64, maxUnits *float64, fixedCharge float64) *repository.TariffEntity {
	ctx := context.Background()
	tariff := &repository.TariffEntity{
		UtilityTypeID: utilityTypeID,
		Name:          fmt.Sprintf("bracket-%.0f", minUnits),
		Rate:          rate,
		MinUnits:      minUnits,
		MaxUnits:      maxUnits,
		FixedCharge:   fixedCharge,
	}
	err := db.Write(ctx).Create(tariff).Error
	require.NoError(t, err)
	return tariff
}

func CreateTestReading(t *testing.T, db *pg.DB, meterID int64, value float64, readAt time.Time) *repository.ReadingEntity {
	ctx := context.Background()
	reading := &repository.ReadingEntity{
		MeterID:    meterID,
		Value:      value,
		ReadAt:     readAt,
		RecordedBy: "field-tester",
	}
	err := db.Write(ctx).Create(reading).Error
	require.NoError(t, err)
	return reading
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
