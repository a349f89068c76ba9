package repository

import (
	"context"
	"errors"

	"github.com/GoPolymarket/unifygate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresLiveConnectionRepo struct {
	db *gorm.DB
}

func NewPostgresLiveConnectionRepo(db *gorm.DB) *PostgresLiveConnectionRepo {
	return &PostgresLiveConnectionRepo{db: db}
}

// Upsert keeps one row per (user_id, installation_id), replacing url, status and
// last_activity on conflict.
func (r *PostgresLiveConnectionRepo) Upsert(ctx context.Context, conn *model.LiveConnection) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "installation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"connection_url", "status", "last_activity"}),
	}).Create(conn).Error
}

func (r *PostgresLiveConnectionRepo) Get(ctx context.Context, userID, installationID string) (*model.LiveConnection, error) {
	var conn model.LiveConnection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND installation_id = ?", userID, installationID).
		Take(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
