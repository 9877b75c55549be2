package repository

import (
	"context"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/pkg/pg"
)

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(p)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) ListByBill(ctx context.Context, billID int64) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	err := r.Read(ctx).
		Where("bill_id = ?", billID).
		Order("paid_at ASC, id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}
