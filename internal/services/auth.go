package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drawmart/drawmart-backend/internal/config"
	"github.com/drawmart/drawmart-backend/internal/models"
	"github.com/drawmart/drawmart-backend/internal/storage"
	"github.com/drawmart/drawmart-backend/internal/utils"
)

// AuthService converts a verified login code into a session. It owns the
// VERIFIED->CONSUMED transition and guarantees at most one token pair per
// verified code, even under concurrent duplicate submissions.
type AuthService struct {
	store  storage.Store
	tokens *TokenService
	cfg    config.OTPConfig
}

// NewAuthService creates a new auth service
func NewAuthService(store storage.Store, tokens *TokenService, cfg *config.Config) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		cfg:    cfg.OTP,
	}
}

// LoginMeta carries request metadata for the audit trail.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// Profile is the denormalized user snapshot returned on login.
type Profile struct {
	ID          string `json:"id"`
	Phone       string `json:"phone"`
	MaskedPhone string `json:"masked_phone"`
	Nickname    string `json:"nickname"`
	AvatarURL   string `json:"avatar_url"`
}

// LoginResult is the full login response: the token pair plus the profile.
type LoginResult struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
	User         Profile `json:"user"`
}

// LoginWithVerifiedCode consumes the most recent verified, in-window code for
// the phone and issues a session. The consume transition and the user upsert
// run in one transaction: if the upsert fails, the consume rolls back and the
// code stays VERIFIED. Audit and last-login writes happen after commit and
// are best-effort.
func (s *AuthService) LoginWithVerifiedCode(phone string, meta LoginMeta) (*LoginResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	record, err := s.store.GetLatestVerificationCode(phone, models.PurposeLogin, models.CodeStatusVerified)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotVerified
		}
		return nil, fmt.Errorf("fetch verified code: %w", err)
	}
	now := time.Now()
	if record.VerifiedAt == nil || now.Sub(*record.VerifiedAt) > s.cfg.LoginWindow {
		// Grace window elapsed. Reported the same as "never verified".
		return nil, ErrNotVerified
	}

	var user *models.User
	err = s.store.Atomically(func(tx storage.Store) error {
		ok, err := tx.TransitionCode(record.ID, models.CodeStatusVerified, models.CodeStatusConsumed)
		if err != nil {
			return fmt.Errorf("consume code: %w", err)
		}
		if !ok {
			// A concurrent login spent this code first.
			return ErrNotVerified
		}
		user, err = tx.UpsertUserByPhone(phone, &models.User{
			ID:        uuid.NewString(),
			PhoneHash: utils.HashPhone(phone, s.cfg.Pepper),
			Nickname:  placeholderNickname(),
		})
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotVerified) {
			return nil, ErrNotVerified
		}
		return nil, fmt.Errorf("login transaction: %w", err)
	}

	// Best-effort bookkeeping: failures are logged, never propagated.
	if err := s.store.CreateLoginAudit(&models.LoginAudit{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Method:    "otp",
		Status:    models.LoginAuditSuccess,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		log.Printf("[auth] login audit write failed: user_id=%s err=%v", user.ID, err)
	}
	if err := s.store.TouchLastLogin(user.ID, now); err != nil {
		log.Printf("[auth] last login update failed: user_id=%s err=%v", user.ID, err)
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         ProfileOf(user),
	}, nil
}

// Profile returns the profile snapshot for an authenticated user ID.
func (s *AuthService) Profile(userID string) (*Profile, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	p := ProfileOf(user)
	return &p, nil
}

// ProfileOf builds the denormalized snapshot returned to clients.
func ProfileOf(user *models.User) Profile {
	return Profile{
		ID:          user.ID,
		Phone:       user.Phone,
		MaskedPhone: utils.MaskPhone(user.Phone),
		Nickname:    user.Nickname,
		AvatarURL:   user.AvatarURL,
	}
}

func placeholderNickname() string {
	return "user_" + uuid.NewString()[:8]
}
