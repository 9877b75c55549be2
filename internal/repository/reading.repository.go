package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrReadingNotFound = errors.New("reading not found")
)

type ReadingRepository struct {
	*pg.DB
}

func NewReadingRepository(db *pg.DB) *ReadingRepository {
	return &ReadingRepository{
		db,
	}
}

func (r *ReadingRepository) Create(ctx context.Context, rd *model.Reading) (*model.Reading, error) {
	entity := toReadingEntity(rd)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toReadingModel(entity), nil
}

func (r *ReadingRepository) Get(ctx context.Context, id int64) (*model.Reading, error) {
	var entity ReadingEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReadingNotFound
		}
		return nil, err
	}
	return toReadingModel(&entity), nil
}

// FindPrevious returns the reading on the same meter that chronologically
// precedes the given one: latest (read_at, id) strictly below the given
// pair. Readings may arrive out of order, so "previous" is decided by the
// reading's own date, never by insertion order alone; the id tiebreak keeps
// same-day readings deterministic. Returns nil when no prior reading exists.
func (r *ReadingRepository) FindPrevious(ctx context.Context, reading *model.Reading) (*model.Reading, error) {
	var entity ReadingEntity
	err := r.Read(ctx).
		Where("meter_id = ?", reading.MeterID).
		Where("read_at < ? OR (read_at = ? AND id < ?)", reading.ReadAt, reading.ReadAt, reading.ID).
		Order("read_at DESC, id DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toReadingModel(&entity), nil
}

// ListUnbilled returns readings no bill references yet.
func (r *ReadingRepository) ListUnbilled(ctx context.Context) ([]*model.Reading, error) {
	billedIDs := r.Read(ctx).Model(&BillEntity{}).Select("reading_id")

	var entities []*ReadingEntity
	err := r.Read(ctx).
		Where("id NOT IN (?)", billedIDs).
		Order("read_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toReadingModels(entities), nil
}
