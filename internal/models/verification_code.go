package models

import (
	"time"
)

// Verification code statuses. Transitions are one-way:
// PENDING -> VERIFIED -> CONSUMED, PENDING -> EXPIRED, PENDING -> LOCKED.
const (
	CodeStatusPending  = "PENDING"
	CodeStatusVerified = "VERIFIED"
	CodeStatusExpired  = "EXPIRED"
	CodeStatusLocked   = "LOCKED"
	CodeStatusConsumed = "CONSUMED"
)

// Verification code purposes
const (
	PurposeLogin = "LOGIN"
)

// VerificationCode is one issued OTP. Rows are never deleted; superseded and
// spent codes stay behind as an audit trail.
type VerificationCode struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Phone        string    `gorm:"not null;index:idx_codes_phone_purpose"`
	Purpose      string    `gorm:"not null;index:idx_codes_phone_purpose"`
	CodeHash     string    `gorm:"not null"` // peppered hash, plaintext is never stored
	Status       string    `gorm:"not null;default:PENDING;index"`
	AttemptCount int       `gorm:"not null;default:0"`
	MaxAttempts  int       `gorm:"not null"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"not null"`
	VerifiedAt   *time.Time
}

// TableName sets the table name to 'verification_codes'
func (VerificationCode) TableName() string { return "verification_codes" }
