package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

var (
	ErrBillNotFound = errors.New("bill not found")
	// ErrDuplicateBill means the reading already has a bill. It is produced
	// by the unique index on bills.reading_id, so two racing generation
	// attempts cannot both succeed.
	ErrDuplicateBill = errors.New("reading is already billed")
)

type BillRepository struct {
	*pg.DB
}

func NewBillRepository(db *pg.DB) *BillRepository {
	return &BillRepository{
		db,
	}
}

func (r *BillRepository) Create(ctx context.Context, b *model.Bill) (*model.Bill, error) {
	entity := toBillEntity(b)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateBill
		}
		return nil, err
	}

	return toBillModel(entity), nil
}

func (r *BillRepository) Get(ctx context.Context, id int64) (*model.Bill, error) {
	var entity BillEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return toBillModel(&entity), nil
}

// GetForUpdate loads a bill under a row lock so concurrent settlement
// attempts serialize; the loser sees the flipped status after the winner
// commits.
func (r *BillRepository) GetForUpdate(ctx context.Context, id int64) (*model.Bill, error) {
	var entity BillEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return toBillModel(&entity), nil
}

func (r *BillRepository) GetByReadingID(ctx context.Context, readingID int64) (*model.Bill, error) {
	var entity BillEntity
	err := r.Read(ctx).Where("reading_id = ?", readingID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return toBillModel(&entity), nil
}

// UpdateStatus flips the bill status only when the bill still has the
// expected one, so a stale caller cannot overwrite a concurrent settlement.
func (r *BillRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BillStatus) error {
	out := r.Write(ctx).Model(&BillEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if out.Error != nil {
		return out.Error
	}
	if out.RowsAffected == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *BillRepository) List(ctx context.Context, f model.BillFilter) ([]*model.Bill, int64, error) {
	q := r.Read(ctx).Model(&BillEntity{})

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.MeterID != nil {
		q = q.Where("meter_id = ?", *f.MeterID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.From != nil {
		q = q.Where("bill_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("bill_date < ?", *f.To)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "bill_date"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*BillEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toBillModels(entities), total, nil
}

// MarkOverdue flips every unpaid bill whose due date has passed. Returns
// how many bills were flipped; the sweep is idempotent.
func (r *BillRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	out := r.Write(ctx).Model(&BillEntity{}).
		Where("status = ? AND due_date < ?", string(model.BillStatusUnpaid), asOf).
		Update("status", string(model.BillStatusOverdue))
	if out.Error != nil {
		return 0, out.Error
	}
	return out.RowsAffected, nil
}
