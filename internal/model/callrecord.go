package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallRecord is the audit row for one attempted upstream call. Rows are append-only.
type CallRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;type:text"`
	UserID         string    `json:"user_id" gorm:"type:text;index:idx_api_requests_owner,priority:1"`
	InstallationID string    `json:"installation_id" gorm:"type:text;index:idx_api_requests_owner,priority:2"`
	Endpoint       string    `json:"endpoint" gorm:"type:text;not null"`
	Method         string    `json:"method" gorm:"type:text;not null"`
	ResponseStatus int       `json:"response_status"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	ErrorMessage   *string   `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

func (CallRecord) TableName() string {
	return "api_requests"
}

func (r *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// CallQuery filters the telemetry log. UserID is mandatory; the rest narrow it.
type CallQuery struct {
	UserID         string
	InstallationID string
	Limit          int
	From           *time.Time
	To             *time.Time
}
