package repository

import (
	"context"

	"github.com/GoPolymarket/unifygate/internal/model"
	"gorm.io/gorm"
)

type PostgresCallRepo struct {
	db *gorm.DB
}

func NewPostgresCallRepo(db *gorm.DB) *PostgresCallRepo {
	return &PostgresCallRepo{db: db}
}

func (r *PostgresCallRepo) Insert(ctx context.Context, rec *model.CallRecord) error {
	if rec == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *PostgresCallRepo) List(ctx context.Context, q model.CallQuery) ([]*model.CallRecord, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	tx := r.db.WithContext(ctx).Where("user_id = ?", q.UserID)
	if q.InstallationID != "" {
		tx = tx.Where("installation_id = ?", q.InstallationID)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("created_at <= ?", *q.To)
	}

	records := make([]*model.CallRecord, 0, q.Limit)
	if err := tx.Order("created_at DESC").Limit(q.Limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
