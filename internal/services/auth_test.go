package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawmart/drawmart-backend/internal/config"
	"github.com/drawmart/drawmart-backend/internal/models"
	"github.com/drawmart/drawmart-backend/internal/storage"
)

func newTestAuthStack(cfg *config.Config) (*OTPService, *AuthService, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	tokens := NewTokenService(cfg.JWT)
	otp := NewOTPService(store, &recordingSender{}, cfg)
	auth := NewAuthService(store, tokens, cfg)
	return otp, auth, store
}

// requestAndVerify walks a phone through request+verify with the dev code.
func requestAndVerify(t *testing.T, otp *OTPService, phone string) {
	t.Helper()
	_, err := otp.RequestCode(phone)
	require.NoError(t, err)
	_, err = otp.VerifyCode(phone, "999999")
	require.NoError(t, err)
}

func TestLogin_FullScenario(t *testing.T) {
	otp, auth, store := newTestAuthStack(testConfig())

	result, err := otp.RequestCode("9990001234")
	require.NoError(t, err)
	assert.Equal(t, "999999", result.DevCode)

	_, err = otp.VerifyCode("9990001234", "999999")
	require.NoError(t, err)

	// Replaying the verify fails without revealing why.
	_, err = otp.VerifyCode("9990001234", "999999")
	require.ErrorIs(t, err, ErrCodeNotFound)

	login, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{IP: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, "9990001234", login.User.Phone)
	assert.Equal(t, "999****234", login.User.MaskedPhone)
	assert.NotEmpty(t, login.User.Nickname)

	// User was upserted with the phone.
	user, err := store.GetUserByPhone("9990001234")
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, user.ID)
	assert.NotEmpty(t, user.PhoneHash)
	require.NotNil(t, user.LastLoginAt)

	// Code ended up CONSUMED.
	_, err = store.GetLatestVerificationCode("9990001234", models.PurposeLogin, models.CodeStatusConsumed)
	assert.NoError(t, err)

	// Audit trail got one success entry.
	audits := store.LoginAudits()
	require.Len(t, audits, 1)
	assert.Equal(t, user.ID, audits[0].UserID)
	assert.Equal(t, "otp", audits[0].Method)
	assert.Equal(t, models.LoginAuditSuccess, audits[0].Status)
	assert.Equal(t, "10.0.0.1", audits[0].IP)
}

func TestLogin_WithoutAnyCode(t *testing.T) {
	_, auth, _ := newTestAuthStack(testConfig())

	_, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestLogin_WithUnverifiedCode(t *testing.T) {
	otp, auth, _ := newTestAuthStack(testConfig())

	_, err := otp.RequestCode("9990001234")
	require.NoError(t, err)

	_, err = auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestLogin_CodeSpentOnlyOnce(t *testing.T) {
	otp, auth, _ := newTestAuthStack(testConfig())
	requestAndVerify(t, otp, "9990001234")

	_, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.NoError(t, err)

	// Double-tapped submit: the second login finds the code consumed.
	_, err = auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestLogin_GraceWindowElapsed(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.LoginWindow = 20 * time.Millisecond
	otp, auth, store := newTestAuthStack(cfg)
	requestAndVerify(t, otp, "9990001234")

	time.Sleep(40 * time.Millisecond)

	_, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	assert.ErrorIs(t, err, ErrNotVerified)

	// The record is not consumed by a late login attempt.
	_, err = store.GetLatestVerificationCode("9990001234", models.PurposeLogin, models.CodeStatusVerified)
	assert.NoError(t, err)
}

func TestLogin_ConcurrentAtMostOnce(t *testing.T) {
	otp, auth, _ := newTestAuthStack(testConfig())
	requestAndVerify(t, otp, "9990001234")

	const n = 20
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrNotVerified)
		}
	}
	assert.Equal(t, 1, successes)
}

func TestLogin_SecondLoginReusesUser(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.ResendInterval = 0
	otp, auth, _ := newTestAuthStack(cfg)

	requestAndVerify(t, otp, "9990001234")
	first, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.NoError(t, err)

	requestAndVerify(t, otp, "9990001234")
	second, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, first.User.Nickname, second.User.Nickname)
}

// upsertFailStore makes every user upsert fail, inside and outside
// transactions.
type upsertFailStore struct {
	storage.Store
}

func (s upsertFailStore) UpsertUserByPhone(phone string, defaults *models.User) (*models.User, error) {
	return nil, errors.New("unique constraint violation")
}

func (s upsertFailStore) Atomically(fn func(storage.Store) error) error {
	return s.Store.Atomically(func(tx storage.Store) error {
		return fn(upsertFailStore{tx})
	})
}

func TestLogin_UpsertFailureRollsBackConsume(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	tokens := NewTokenService(cfg.JWT)
	otp := NewOTPService(store, &recordingSender{}, cfg)
	failing := NewAuthService(upsertFailStore{store}, tokens, cfg)
	working := NewAuthService(store, tokens, cfg)

	requestAndVerify(t, otp, "9990001234")

	_, err := failing.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotVerified)

	// The consume was rolled back: the code is still VERIFIED and spendable.
	_, err = store.GetLatestVerificationCode("9990001234", models.PurposeLogin, models.CodeStatusVerified)
	require.NoError(t, err)

	_, err = working.LoginWithVerifiedCode("9990001234", LoginMeta{})
	assert.NoError(t, err)
}

// auditFailStore fails only the audit write.
type auditFailStore struct {
	storage.Store
}

func (s auditFailStore) CreateLoginAudit(entry *models.LoginAudit) error {
	return errors.New("audit table unavailable")
}

func TestLogin_AuditFailureDoesNotFailLogin(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	tokens := NewTokenService(cfg.JWT)
	otp := NewOTPService(store, &recordingSender{}, cfg)
	auth := NewAuthService(auditFailStore{store}, tokens, cfg)

	requestAndVerify(t, otp, "9990001234")

	login, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
}

func TestProfile(t *testing.T) {
	otp, auth, _ := newTestAuthStack(testConfig())
	requestAndVerify(t, otp, "9990001234")

	login, err := auth.LoginWithVerifiedCode("9990001234", LoginMeta{})
	require.NoError(t, err)

	profile, err := auth.Profile(login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, login.User, *profile)

	_, err = auth.Profile("missing-id")
	assert.Error(t, err)
}
