package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LiveStatusActive   = "active"
	LiveStatusInactive = "inactive"
	LiveStatusError    = "error"
)

// LiveConnection holds the latest streaming URL Unify issued for an installation.
type LiveConnection struct {
	ID             string    `json:"id" gorm:"primaryKey;type:text"`
	UserID         string    `json:"user_id" gorm:"type:text;not null;uniqueIndex:ux_live_connections_owner,priority:1"`
	InstallationID string    `json:"installation_id" gorm:"type:text;not null;uniqueIndex:ux_live_connections_owner,priority:2"`
	ConnectionURL  string    `json:"connection_url" gorm:"type:text"`
	Status         string    `json:"status" gorm:"type:text;not null;default:active"`
	LastActivity   time.Time `json:"last_activity"`
	CreatedAt      time.Time `json:"created_at"`
}

func (LiveConnection) TableName() string {
	return "live_connections"
}

func (c *LiveConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
