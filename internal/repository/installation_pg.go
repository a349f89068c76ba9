package repository

import (
	"context"
	"errors"

	"github.com/GoPolymarket/unifygate/internal/model"
	"gorm.io/gorm"
)

type PostgresInstallationRepo struct {
	db *gorm.DB
}

func NewPostgresInstallationRepo(db *gorm.DB) *PostgresInstallationRepo {
	return &PostgresInstallationRepo{db: db}
}

// Create relies on ux_installations_owner; a second row for the same owner and
// installation id surfaces as ErrDuplicate and leaves the first untouched.
func (r *PostgresInstallationRepo) Create(ctx context.Context, inst *model.Installation) error {
	err := r.db.WithContext(ctx).Create(inst).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresInstallationRepo) Get(ctx context.Context, userID, installationID string) (*model.Installation, error) {
	var inst model.Installation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND installation_id = ?", userID, installationID).
		Take(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *PostgresInstallationRepo) List(ctx context.Context, userID string) ([]*model.Installation, error) {
	var out []*model.Installation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
