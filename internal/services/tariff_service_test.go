package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/internal/model"
)

func f64(v float64) *float64 { return &v }

// electricity-style bracket set: 0-60 at 8, 61-120 at 12, above at 20,
// base fixed charge 150
func tieredTariffs() []*model.Tariff {
	return []*model.Tariff{
		{ID: 1, UtilityTypeID: 1, Name: "Base", Rate: 8, MinUnits: 0, MaxUnits: f64(60), FixedCharge: 150},
		{ID: 2, UtilityTypeID: 1, Name: "Mid", Rate: 12, MinUnits: 61, MaxUnits: f64(120)},
		{ID: 3, UtilityTypeID: 1, Name: "Top", Rate: 20, MinUnits: 121},
	}
}

func TestCalculateAmount_Tiered(t *testing.T) {
	tariffs := tieredTariffs()

	t.Run("inside the base bracket", func(t *testing.T) {
		amount, err := CalculateAmount(tariffs, 50)
		require.NoError(t, err)
		assert.Equal(t, 150+50*8.0, amount)
	})

	t.Run("spans two brackets", func(t *testing.T) {
		amount, err := CalculateAmount(tariffs, 100)
		require.NoError(t, err)
		assert.Equal(t, 150+60*8.0+40*12.0, amount)
	})

	t.Run("reaches the unbounded bracket", func(t *testing.T) {
		amount, err := CalculateAmount(tariffs, 200)
		require.NoError(t, err)
		assert.Equal(t, 150+60*8.0+60*12.0+80*20.0, amount)
	})

	t.Run("exactly on a bracket edge", func(t *testing.T) {
		amount, err := CalculateAmount(tariffs, 60)
		require.NoError(t, err)
		assert.Equal(t, 150+60*8.0, amount)
	})

	t.Run("zero consumption pays only the fixed charge", func(t *testing.T) {
		amount, err := CalculateAmount(tariffs, 0)
		require.NoError(t, err)
		assert.Equal(t, 150.0, amount)
	})
}

func TestCalculateAmount_Flat(t *testing.T) {
	flat := []*model.Tariff{
		{ID: 10, UtilityTypeID: 2, Name: "Water", Rate: 30, MinUnits: 0},
	}

	t.Run("single bracket is flat rate", func(t *testing.T) {
		amount, err := CalculateAmount(flat, 12)
		require.NoError(t, err)
		assert.Equal(t, 360.0, amount)
	})

	t.Run("flat with fixed charge", func(t *testing.T) {
		withFixed := []*model.Tariff{
			{ID: 11, UtilityTypeID: 3, Name: "Gas", Rate: 45, MinUnits: 0, FixedCharge: 200},
		}
		amount, err := CalculateAmount(withFixed, 10)
		require.NoError(t, err)
		assert.Equal(t, 650.0, amount)
	})
}

func TestCalculateAmount_Edges(t *testing.T) {
	t.Run("no tariffs configured", func(t *testing.T) {
		_, err := CalculateAmount(nil, 10)
		assert.ErrorIs(t, err, ErrNoTariff)
	})

	t.Run("negative consumption is refused", func(t *testing.T) {
		_, err := CalculateAmount(tieredTariffs(), -5)
		assert.Error(t, err)
	})

	t.Run("all brackets bounded, consumption beyond the top", func(t *testing.T) {
		bounded := []*model.Tariff{
			{ID: 1, UtilityTypeID: 1, Rate: 8, MinUnits: 0, MaxUnits: f64(60)},
			{ID: 2, UtilityTypeID: 1, Rate: 12, MinUnits: 61, MaxUnits: f64(120)},
		}
		amount, err := CalculateAmount(bounded, 150)
		require.NoError(t, err)
		assert.Equal(t, 60*8.0+60*12.0+30*12.0, amount)
	})
}

type MockTariffRepository struct {
	mock.Mock
}

func (m *MockTariffRepository) Create(ctx context.Context, tr *model.Tariff) (*model.Tariff, error) {
	args := m.Called(ctx, tr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tariff), args.Error(1)
}

func (m *MockTariffRepository) Get(ctx context.Context, id int64) (*model.Tariff, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tariff), args.Error(1)
}

func (m *MockTariffRepository) ListByUtilityType(ctx context.Context, utilityTypeID int64) ([]*model.Tariff, error) {
	args := m.Called(ctx, utilityTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Tariff), args.Error(1)
}

func (m *MockTariffRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockUtilityTypeRepository struct {
	mock.Mock
}

func (m *MockUtilityTypeRepository) Get(ctx context.Context, id int64) (*model.UtilityType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UtilityType), args.Error(1)
}

func (m *MockUtilityTypeRepository) List(ctx context.Context) ([]*model.UtilityType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UtilityType), args.Error(1)
}

func TestTariffService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects inverted bracket", func(t *testing.T) {
		service := NewTariffService(new(MockTariffRepository), new(MockUtilityTypeRepository))

		_, err := service.Create(ctx, &model.Tariff{
			UtilityTypeID: 1, Rate: 8, MinUnits: 100, MaxUnits: f64(50),
		})
		assert.ErrorIs(t, err, ErrInvalidTariff)
	})

	t.Run("rejects unknown utility", func(t *testing.T) {
		utilityRepo := new(MockUtilityTypeRepository)
		utilityRepo.On("Get", ctx, int64(9)).Return(nil, assert.AnError)

		service := NewTariffService(new(MockTariffRepository), utilityRepo)

		_, err := service.Create(ctx, &model.Tariff{UtilityTypeID: 9, Rate: 8})
		assert.ErrorIs(t, err, ErrUnknownUtility)
	})

	t.Run("creates valid bracket", func(t *testing.T) {
		tariffRepo := new(MockTariffRepository)
		utilityRepo := new(MockUtilityTypeRepository)

		in := &model.Tariff{UtilityTypeID: 1, Name: "Base", Rate: 8, MaxUnits: f64(60)}
		utilityRepo.On("Get", ctx, int64(1)).Return(&model.UtilityType{ID: 1, Name: "Electricity"}, nil)
		tariffRepo.On("ListByUtilityType", ctx, int64(1)).Return(nil, nil)
		tariffRepo.On("Create", ctx, in).Return(&model.Tariff{ID: 5}, nil)

		service := NewTariffService(tariffRepo, utilityRepo)

		created, err := service.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(5), created.ID)
		tariffRepo.AssertExpectations(t)
	})
}

func TestTariffService_Create_RejectsOverlap(t *testing.T) {
	ctx := context.Background()

	electricity := &model.UtilityType{ID: 1, Name: "Electricity"}

	newService := func(existing []*model.Tariff) (*TariffService, *MockTariffRepository) {
		tariffRepo := new(MockTariffRepository)
		utilityRepo := new(MockUtilityTypeRepository)
		utilityRepo.On("Get", ctx, int64(1)).Return(electricity, nil)
		tariffRepo.On("ListByUtilityType", ctx, int64(1)).Return(existing, nil)
		return NewTariffService(tariffRepo, utilityRepo), tariffRepo
	}

	t.Run("refuses a bracket cutting into an existing one", func(t *testing.T) {
		service, tariffRepo := newService([]*model.Tariff{
			{ID: 1, UtilityTypeID: 1, Rate: 8, MinUnits: 0, MaxUnits: f64(100)},
		})

		_, err := service.Create(ctx, &model.Tariff{
			UtilityTypeID: 1, Rate: 12, MinUnits: 50, MaxUnits: f64(150),
		})
		assert.ErrorIs(t, err, ErrOverlappingTariff)
		tariffRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("refuses a bracket under an unbounded top", func(t *testing.T) {
		service, _ := newService([]*model.Tariff{
			{ID: 3, UtilityTypeID: 1, Rate: 20, MinUnits: 121},
		})

		_, err := service.Create(ctx, &model.Tariff{
			UtilityTypeID: 1, Rate: 25, MinUnits: 200, MaxUnits: f64(300),
		})
		assert.ErrorIs(t, err, ErrOverlappingTariff)
	})

	t.Run("accepts an adjacent bracket", func(t *testing.T) {
		service, tariffRepo := newService([]*model.Tariff{
			{ID: 1, UtilityTypeID: 1, Rate: 8, MinUnits: 0, MaxUnits: f64(60)},
		})

		in := &model.Tariff{UtilityTypeID: 1, Rate: 12, MinUnits: 61, MaxUnits: f64(120)}
		tariffRepo.On("Create", ctx, in).Return(&model.Tariff{ID: 2}, nil)

		created, err := service.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(2), created.ID)
	})
}

func TestTariffService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("prices against the configured brackets", func(t *testing.T) {
		tariffRepo := new(MockTariffRepository)
		utilityRepo := new(MockUtilityTypeRepository)

		utilityRepo.On("Get", ctx, int64(1)).Return(&model.UtilityType{ID: 1, Name: "Electricity"}, nil)
		tariffRepo.On("ListByUtilityType", ctx, int64(1)).Return(tieredTariffs(), nil)

		service := NewTariffService(tariffRepo, utilityRepo)

		preview, err := service.Preview(ctx, 1, 80)
		require.NoError(t, err)
		assert.Equal(t, 870.0, preview.Amount)
		assert.Equal(t, 3, preview.BracketCount)
	})

	t.Run("rejects negative consumption", func(t *testing.T) {
		service := NewTariffService(new(MockTariffRepository), new(MockUtilityTypeRepository))

		_, err := service.Preview(ctx, 1, -10)
		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("rejects unknown utility", func(t *testing.T) {
		utilityRepo := new(MockUtilityTypeRepository)
		utilityRepo.On("Get", ctx, int64(9)).Return(nil, assert.AnError)

		service := NewTariffService(new(MockTariffRepository), utilityRepo)

		_, err := service.Preview(ctx, 9, 10)
		assert.ErrorIs(t, err, ErrUnknownUtility)
	})
}
