package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/repository"
)

var (
	ErrNoTariff          = errors.New("no tariff configured for utility type")
	ErrInvalidTariff     = errors.New("invalid tariff bracket")
	ErrOverlappingTariff = errors.New("tariff bracket overlaps an existing bracket")
	ErrTariffNotFound    = errors.New("tariff not found")
	ErrTariffInUse       = errors.New("tariff is referenced by existing bills")
	ErrUnknownUtility    = errors.New("unknown utility type")
	ErrInvalidReading    = errors.New("reading is below the previous reading")
	ErrReadingNotFound   = errors.New("reading not found")
	ErrMeterNotFound     = errors.New("meter not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrBillNotFound      = errors.New("bill not found")
	ErrAlreadyBilled     = errors.New("reading is already billed")
	ErrAlreadySettled    = errors.New("bill is already settled")
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrIncompletePayment = errors.New("payment does not cover the amount due")
)

type TariffRepository interface {
	Create(ctx context.Context, t *model.Tariff) (*model.Tariff, error)
	Get(ctx context.Context, id int64) (*model.Tariff, error)
	ListByUtilityType(ctx context.Context, utilityTypeID int64) ([]*model.Tariff, error)
	Delete(ctx context.Context, id int64) error
}

type UtilityTypeRepository interface {
	Get(ctx context.Context, id int64) (*model.UtilityType, error)
	List(ctx context.Context) ([]*model.UtilityType, error)
}

type TariffService struct {
	tariffRepo  TariffRepository
	utilityRepo UtilityTypeRepository
}

func NewTariffService(tariffRepo TariffRepository, utilityRepo UtilityTypeRepository) *TariffService {
	return &TariffService{
		tariffRepo:  tariffRepo,
		utilityRepo: utilityRepo,
	}
}

func (s *TariffService) Create(ctx context.Context, t *model.Tariff) (*model.Tariff, error) {
	if t.Rate < 0 || t.MinUnits < 0 || t.FixedCharge < 0 {
		return nil, ErrInvalidTariff
	}
	if t.MaxUnits != nil && *t.MaxUnits < t.MinUnits {
		return nil, ErrInvalidTariff
	}
	if _, err := s.utilityRepo.Get(ctx, t.UtilityTypeID); err != nil {
		return nil, ErrUnknownUtility
	}

	existing, err := s.tariffRepo.ListByUtilityType(ctx, t.UtilityTypeID)
	if err != nil {
		return nil, err
	}
	for _, bracket := range existing {
		if bracketsOverlap(bracket, t) {
			return nil, ErrOverlappingTariff
		}
	}

	return s.tariffRepo.Create(ctx, t)
}

// bracketsOverlap reports whether two brackets of one utility cover a
// common unit range. Bounds are inclusive; nil MaxUnits is unbounded.
func bracketsOverlap(a, b *model.Tariff) bool {
	if a.MaxUnits != nil && *a.MaxUnits < b.MinUnits {
		return false
	}
	if b.MaxUnits != nil && *b.MaxUnits < a.MinUnits {
		return false
	}
	return true
}

func (s *TariffService) List(ctx context.Context, utilityTypeID int64) ([]*model.Tariff, error) {
	return s.tariffRepo.ListByUtilityType(ctx, utilityTypeID)
}

func (s *TariffService) Delete(ctx context.Context, id int64) error {
	err := s.tariffRepo.Delete(ctx, id)
	if err != nil {
		return mapTariffErr(err)
	}
	return nil
}

// Preview prices a hypothetical consumption figure against the utility's
// configured brackets without recording anything.
func (s *TariffService) Preview(ctx context.Context, utilityTypeID int64, consumption float64) (*model.TariffPreview, error) {
	if consumption < 0 {
		return nil, ErrInvalidReading
	}
	if _, err := s.utilityRepo.Get(ctx, utilityTypeID); err != nil {
		return nil, ErrUnknownUtility
	}

	tariffs, err := s.tariffRepo.ListByUtilityType(ctx, utilityTypeID)
	if err != nil {
		return nil, err
	}

	amount, err := CalculateAmount(tariffs, consumption)
	if err != nil {
		return nil, err
	}

	return &model.TariffPreview{
		UtilityTypeID: utilityTypeID,
		Consumption:   consumption,
		Amount:        amount,
		BracketCount:  len(tariffs),
	}, nil
}

// CalculateAmount prices a consumption figure against the utility's bracket
// set. Brackets must arrive ordered by ascending MinUnits, the order
// ListByUtilityType guarantees.
//
// With a single bracket the utility is billed flat: rate times consumption
// plus the bracket's fixed charge. With several brackets the consumption is
// walked through them tier by tier, each slice priced at its own rate, and
// the base bracket's fixed charge added once. Brackets apply to the
// consumption for the period, not to the cumulative register value.
func CalculateAmount(tariffs []*model.Tariff, consumption float64) (float64, error) {
	if len(tariffs) == 0 {
		return 0, ErrNoTariff
	}
	if consumption < 0 {
		return 0, fmt.Errorf("negative consumption: %f", consumption)
	}

	base := tariffs[0]

	if len(tariffs) == 1 {
		return base.Rate*consumption + base.FixedCharge, nil
	}

	amount := base.FixedCharge
	remaining := consumption
	covered := 0.0

	for _, bracket := range tariffs {
		if remaining <= 0 {
			break
		}

		width := remaining
		if bracket.MaxUnits != nil {
			width = *bracket.MaxUnits - covered
			if width > remaining {
				width = remaining
			}
			covered = *bracket.MaxUnits
		}
		if width <= 0 {
			continue
		}

		amount += width * bracket.Rate
		remaining -= width
	}

	// consumption beyond the top bounded bracket, with no unbounded bracket
	// configured, is priced at the last bracket's rate
	if remaining > 0 {
		amount += remaining * tariffs[len(tariffs)-1].Rate
	}

	return amount, nil
}

func mapTariffErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrTariffNotFound):
		return ErrTariffNotFound
	case errors.Is(err, repository.ErrTariffInUse):
		return ErrTariffInUse
	default:
		return err
	}
}
