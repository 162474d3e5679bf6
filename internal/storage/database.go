package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drawmart/drawmart-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM. All
// state-machine transitions are issued as single conditional UPDATEs so the
// database linearizes concurrent requests; no row is ever locked pessimistically.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) CreateVerificationCode(code *models.VerificationCode) (*models.VerificationCode, error) {
	if err := s.db.Create(code).Error; err != nil {
		return nil, fmt.Errorf("create verification code: %w", err)
	}
	return code, nil
}

func (s *DatabaseStore) GetLatestVerificationCode(phone, purpose string, statuses ...string) (*models.VerificationCode, error) {
	var code models.VerificationCode
	err := s.db.
		Where("phone = ? AND purpose = ? AND status IN ?", phone, purpose, statuses).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest verification code: %w", err)
	}
	return &code, nil
}

func (s *DatabaseStore) MarkCodeVerified(id string, maxAttempts int, verifiedAt time.Time) (bool, error) {
	res := s.db.Model(&models.VerificationCode{}).
		Where("id = ? AND status = ? AND attempt_count < ?", id, models.CodeStatusPending, maxAttempts).
		Updates(map[string]interface{}{
			"status":        models.CodeStatusVerified,
			"verified_at":   verifiedAt,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark code verified: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *DatabaseStore) RecordFailedAttempt(id string) (int, error) {
	var code models.VerificationCode
	res := s.db.Model(&code).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "attempt_count"}}}).
		Where("id = ? AND status = ?", id, models.CodeStatusPending).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("record failed attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Record left PENDING between our read and this update.
		return 0, nil
	}
	return code.AttemptCount, nil
}

func (s *DatabaseStore) TransitionCode(id, from, to string) (bool, error) {
	res := s.db.Model(&models.VerificationCode{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("transition code %s->%s: %w", from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *DatabaseStore) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return &user, nil
}

func (s *DatabaseStore) UpsertUserByPhone(phone string, defaults *models.User) (*models.User, error) {
	defaults.Phone = phone
	// Insert-or-ignore on the unique phone column, then read back the winning
	// row. Two concurrent first logins both end up with the same user.
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(defaults)
	if res.Error != nil {
		return nil, fmt.Errorf("upsert user: %w", res.Error)
	}
	return s.GetUserByPhone(phone)
}

func (s *DatabaseStore) TouchLastLogin(userID string, at time.Time) error {
	err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (s *DatabaseStore) CreateLoginAudit(entry *models.LoginAudit) error {
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create login audit: %w", err)
	}
	return nil
}

func (s *DatabaseStore) Atomically(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DatabaseStore{db: tx})
	})
}
