package models

import (
	"time"
)

// User is a platform account. Accounts are created lazily on first successful
// OTP login ("login is registration") and reused on subsequent logins.
type User struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	Phone       string     `gorm:"uniqueIndex;not null" json:"phone"`
	PhoneHash   string     `gorm:"not null" json:"-"`
	Nickname    string     `gorm:"size:64" json:"nickname"`
	AvatarURL   string     `gorm:"size:512" json:"avatar_url"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }
