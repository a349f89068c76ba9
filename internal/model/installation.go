package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Installation is one registered Unify site owned by one dashboard user.
type Installation struct {
	ID               string    `json:"id" gorm:"primaryKey;type:text"`
	UserID           string    `json:"user_id" gorm:"type:text;not null;uniqueIndex:ux_installations_owner,priority:1"`
	InstallationID   string    `json:"installation_id" gorm:"type:text;not null;uniqueIndex:ux_installations_owner,priority:2"`
	InstallationName string    `json:"installation_name" gorm:"type:text;not null"`
	UnifyAPIToken    string    `json:"unify_api_token" gorm:"type:text;not null"` // sealed when a token key is configured
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Installation) TableName() string {
	return "installations"
}

func (i *Installation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
