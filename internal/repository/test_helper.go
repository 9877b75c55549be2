package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meterline/billing/pkg/pg"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

func setupTestDB(t *testing.T) *testDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&CustomerEntity{},
		&UtilityTypeEntity{},
		&MeterEntity{},
		&TariffEntity{},
		&ReadingEntity{},
		&BillEntity{},
		&PaymentEntity{},
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

	return &testDB{
		DB:    pgDB,
		rawDB: db,
	}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// seedAccount creates a customer with one active electricity meter and
// returns both, plus the utility type.
func (db *testDB) seedAccount(t *testing.T) (*CustomerEntity, *UtilityTypeEntity, *MeterEntity) {
	t.Helper()

	customer := &CustomerEntity{
		Name:         "Asha Perera",
		CustomerType: "Domestic",
		Email:        "asha@example.com",
		Phone:        "+94771234567",
	}
	require.NoError(t, db.rawDB.Create(customer).Error)

	utility := &UtilityTypeEntity{Name: "Electricity", Unit: "kWh"}
	require.NoError(t, db.rawDB.Create(utility).Error)

	meter := &MeterEntity{
		CustomerID:    customer.ID,
		UtilityTypeID: utility.ID,
		Status:        "Active",
		Location:      "12 Lake Rd",
	}
	require.NoError(t, db.rawDB.Create(meter).Error)

	return customer, utility, meter
}
