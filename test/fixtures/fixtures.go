package fixtures

import (
	"time"

	"github.com/meterline/billing/internal/model"
)

var (
	TestCustomerDomestic = model.Customer{
		ID:             1,
		Name:           "Asha Perera",
		CustomerType:   "Domestic",
		ServiceAddress: "12 Lake Rd",
	}

	TestCustomerCommercial = model.Customer{
		ID:           2,
		Name:         "Harbour Bakery Ltd",
		CustomerType: "Commercial",
	}
)

func f64(v float64) *float64 { return &v }

// DomesticElectricityTariffs is a three bracket electricity tariff:
// 0-60 units at 8.00 with a 150.00 fixed charge, 61-120 at 12.00,
// everything above 120 at 20.00.
func DomesticElectricityTariffs(utilityTypeID int64) []*model.Tariff {
	return []*model.Tariff{
		{UtilityTypeID: utilityTypeID, Name: "base", Rate: 8, MinUnits: 0, MaxUnits: f64(60), FixedCharge: 150},
		{UtilityTypeID: utilityTypeID, Name: "mid", Rate: 12, MinUnits: 61, MaxUnits: f64(120)},
		{UtilityTypeID: utilityTypeID, Name: "top", Rate: 20, MinUnits: 121, MaxUnits: nil},
	}
}

// FlatWaterTariff is a single unbounded bracket.
func FlatWaterTariff(utilityTypeID int64) []*model.Tariff {
	return []*model.Tariff{
		{UtilityTypeID: utilityTypeID, Name: "flat", Rate: 3.5, MinUnits: 0, MaxUnits: nil, FixedCharge: 50},
	}
}

func NewTestReadingRequest(meterID int64, value float64, readAt time.Time) model.ReadingCreateRequest {
	return model.ReadingCreateRequest{
		MeterID:    meterID,
		Value:      value,
		ReadAt:     readAt,
		RecordedBy: "field-tester",
	}
}

func NewTestPaymentRequest(billID int64, amount float64) model.PaymentCreateRequest {
	return model.PaymentCreateRequest{
		BillID:     billID,
		Amount:     amount,
		Method:     "Cash",
		RecordedBy: "counter-1",
	}
}
