package storage

import (
	"errors"
	"time"

	"github.com/drawmart/drawmart-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no record
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Verification code operations
	CreateVerificationCode(code *models.VerificationCode) (*models.VerificationCode, error)
	// GetLatestVerificationCode returns the newest code for (phone, purpose)
	// whose status is in statuses, or ErrNotFound.
	GetLatestVerificationCode(phone, purpose string, statuses ...string) (*models.VerificationCode, error)
	// MarkCodeVerified performs the PENDING->VERIFIED transition as a single
	// conditional update guarded by (id, status=PENDING, attempt_count <
	// maxAttempts), also incrementing attempt_count and setting verified_at.
	// Returns false if the guard matched no row.
	MarkCodeVerified(id string, maxAttempts int, verifiedAt time.Time) (bool, error)
	// RecordFailedAttempt atomically increments attempt_count while the record
	// is still PENDING and returns the post-increment count. A zero count
	// means the record was no longer PENDING and nothing was changed.
	RecordFailedAttempt(id string) (int, error)
	// TransitionCode moves a code from one status to another as a conditional
	// update. Returns false if the record was not in the expected status.
	TransitionCode(id, from, to string) (bool, error)

	// User operations
	GetUserByID(id string) (*models.User, error)
	GetUserByPhone(phone string) (*models.User, error)
	// UpsertUserByPhone creates the user with the given defaults if no record
	// exists for the phone, otherwise returns the existing record untouched.
	UpsertUserByPhone(phone string, defaults *models.User) (*models.User, error)
	TouchLastLogin(userID string, at time.Time) error

	// Login audit operations
	CreateLoginAudit(entry *models.LoginAudit) error

	// Atomically runs fn against a Store bound to a single transaction.
	// If fn returns an error every write made through that Store is rolled
	// back and the error is returned unchanged.
	Atomically(fn func(Store) error) error
}
