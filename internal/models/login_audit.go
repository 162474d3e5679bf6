package models

import (
	"time"
)

// Login audit statuses
const (
	LoginAuditSuccess = "success"
	LoginAuditFailed  = "failed"
)

// LoginAudit is an append-only record of a login attempt. Writes are
// best-effort: losing one must never fail the login itself.
type LoginAudit struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Method    string    `gorm:"size:32"` // "otp"
	Status    string    `gorm:"size:16"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:256"`
	CreatedAt time.Time
}

func (LoginAudit) TableName() string { return "login_audits" }
