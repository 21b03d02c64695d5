package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a console operator's action.
type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OperatorID *int64         `gorm:"index" json:"operator_id"`
	Email      string         `gorm:"size:255" json:"email"`
	Action     string         `gorm:"size:100;not null;index" json:"action"`
	Resource   string         `gorm:"size:100;index" json:"resource"`
	ResourceID string         `gorm:"size:100;index" json:"resource_id"`
	IP         string         `gorm:"size:45" json:"ip"`
	UserAgent  string         `gorm:"size:512" json:"user_agent"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
