package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drawmart/drawmart-backend/internal/config"
	"github.com/drawmart/drawmart-backend/internal/models"
	"github.com/drawmart/drawmart-backend/internal/storage"
	"github.com/drawmart/drawmart-backend/internal/utils"
)

// OTPService owns the lifecycle of login verification codes: creation,
// hashing, attempt counting, expiry and the atomic status transitions.
// All coordination between concurrent requests happens through the store's
// conditional updates; the service itself keeps no mutable state.
type OTPService struct {
	store      storage.Store
	sender     SMSSender
	cfg        config.OTPConfig
	production bool
}

// NewOTPService creates a new OTP service
func NewOTPService(store storage.Store, sender SMSSender, cfg *config.Config) *OTPService {
	return &OTPService{
		store:      store,
		sender:     sender,
		cfg:        cfg.OTP,
		production: cfg.IsProduction(),
	}
}

// RequestCodeResult reports a successful code request. DevCode carries the
// plaintext code outside production so local clients can log in without an
// SMS gateway; it is always empty in production.
type RequestCodeResult struct {
	DevCode string
}

// RequestCode issues a new PENDING login code for the phone and dispatches it
// through the SMS sender. Requests inside the resend cool-down are rejected.
func (s *OTPService) RequestCode(phone string) (*RequestCodeResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	// Cool-down: one active code per (phone, purpose) within the interval.
	latest, err := s.store.GetLatestVerificationCode(phone, models.PurposeLogin,
		models.CodeStatusPending, models.CodeStatusVerified)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check active code: %w", err)
	}
	if latest != nil && time.Since(latest.CreatedAt) < s.cfg.ResendInterval {
		return nil, ErrRateLimited
	}

	code := s.cfg.DevCode
	if s.production || code == "" {
		code, err = utils.GenerateSecureOTP()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
	}

	now := time.Now()
	record := &models.VerificationCode{
		ID:          uuid.NewString(),
		Phone:       phone,
		Purpose:     models.PurposeLogin,
		CodeHash:    utils.HashCode(phone, code, s.cfg.Pepper),
		Status:      models.CodeStatusPending,
		MaxAttempts: s.cfg.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
	}
	if _, err := s.store.CreateVerificationCode(record); err != nil {
		return nil, fmt.Errorf("create verification code: %w", err)
	}

	// Persist first, then dispatch: a gateway failure leaves a valid record
	// that can still be verified or re-sent after the cool-down.
	if err := s.sender.Send(phone, code); err != nil {
		return nil, fmt.Errorf("send verification code: %w", err)
	}

	result := &RequestCodeResult{}
	if !s.production {
		result.DevCode = code
	}
	return result, nil
}

// VerifyCode checks the submitted code against the most recent PENDING record
// for the phone and performs the PENDING->VERIFIED transition on a match.
// The transition is a conditional update guarded by (id, PENDING, attempt
// bound); if another request already moved the record, ErrCodeAlreadyUsed is
// returned so no two callers can both report success for one code.
func (s *OTPService) VerifyCode(phone, code string) (*models.VerificationCode, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return nil, ErrInvalidPhone
	}

	record, err := s.store.GetLatestVerificationCode(phone, models.PurposeLogin, models.CodeStatusPending)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("fetch pending code: %w", err)
	}

	now := time.Now()
	if now.After(record.ExpiresAt) {
		if _, err := s.store.TransitionCode(record.ID, models.CodeStatusPending, models.CodeStatusExpired); err != nil {
			return nil, fmt.Errorf("expire code: %w", err)
		}
		return nil, ErrCodeExpired
	}
	if record.AttemptCount >= record.MaxAttempts {
		if _, err := s.store.TransitionCode(record.ID, models.CodeStatusPending, models.CodeStatusLocked); err != nil {
			return nil, fmt.Errorf("lock code: %w", err)
		}
		return nil, ErrTooManyAttempts
	}

	if !utils.HashEqual(utils.HashCode(phone, code, s.cfg.Pepper), record.CodeHash) {
		attempts, err := s.store.RecordFailedAttempt(record.ID)
		if err != nil {
			return nil, fmt.Errorf("record failed attempt: %w", err)
		}
		if attempts == 0 {
			// Record left PENDING under us; a concurrent verify won.
			return nil, ErrCodeAlreadyUsed
		}
		if attempts >= record.MaxAttempts {
			if _, err := s.store.TransitionCode(record.ID, models.CodeStatusPending, models.CodeStatusLocked); err != nil {
				return nil, fmt.Errorf("lock code: %w", err)
			}
		}
		return nil, ErrCodeInvalid
	}

	ok, err := s.store.MarkCodeVerified(record.ID, record.MaxAttempts, now)
	if err != nil {
		return nil, fmt.Errorf("mark code verified: %w", err)
	}
	if !ok {
		return nil, ErrCodeAlreadyUsed
	}

	record.Status = models.CodeStatusVerified
	record.VerifiedAt = &now
	record.AttemptCount++
	return record, nil
}
