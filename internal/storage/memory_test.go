package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drawmart/drawmart-backend/internal/models"
)

func pendingCode(id, phone string) *models.VerificationCode {
	return &models.VerificationCode{
		ID:          id,
		Phone:       phone,
		Purpose:     models.PurposeLogin,
		CodeHash:    "hash",
		Status:      models.CodeStatusPending,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
}

func TestGetLatestVerificationCode(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusPending)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.CreateVerificationCode(pendingCode("old", "555"))
	require.NoError(t, err)
	_, err = store.CreateVerificationCode(pendingCode("new", "555"))
	require.NoError(t, err)
	_, err = store.CreateVerificationCode(pendingCode("other", "777"))
	require.NoError(t, err)

	code, err := store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusPending)
	require.NoError(t, err)
	assert.Equal(t, "new", code.ID)

	// Status filter applies
	_, err = store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusVerified)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionCode_CASSemantics(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateVerificationCode(pendingCode("c1", "555"))
	require.NoError(t, err)

	ok, err := store.TransitionCode("c1", models.CodeStatusVerified, models.CodeStatusConsumed)
	require.NoError(t, err)
	assert.False(t, ok, "wrong expected status must not transition")

	ok, err = store.TransitionCode("c1", models.CodeStatusPending, models.CodeStatusExpired)
	require.NoError(t, err)
	assert.True(t, ok)

	// One-shot: the guard no longer matches.
	ok, err = store.TransitionCode("c1", models.CodeStatusPending, models.CodeStatusExpired)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransitionCode_ConcurrentSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateVerificationCode(pendingCode("c1", "555"))
	require.NoError(t, err)

	const n = 16
	wins := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.TransitionCode("c1", models.CodeStatusPending, models.CodeStatusExpired)
			require.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMarkCodeVerified(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateVerificationCode(pendingCode("c1", "555"))
	require.NoError(t, err)

	now := time.Now()
	ok, err := store.MarkCodeVerified("c1", 5, now)
	require.NoError(t, err)
	assert.True(t, ok)

	code, err := store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusVerified)
	require.NoError(t, err)
	assert.Equal(t, 1, code.AttemptCount)
	require.NotNil(t, code.VerifiedAt)

	// No longer PENDING, so the CAS fails.
	ok, err = store.MarkCodeVerified("c1", 5, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkCodeVerified_AttemptBound(t *testing.T) {
	store := NewMemoryStore()
	code := pendingCode("c1", "555")
	code.AttemptCount = 5
	_, err := store.CreateVerificationCode(code)
	require.NoError(t, err)

	ok, err := store.MarkCodeVerified("c1", 5, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "exhausted record must not verify")
}

func TestRecordFailedAttempt(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateVerificationCode(pendingCode("c1", "555"))
	require.NoError(t, err)

	n, err := store.RecordFailedAttempt("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.RecordFailedAttempt("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Zero signals "no longer PENDING".
	_, err = store.TransitionCode("c1", models.CodeStatusPending, models.CodeStatusLocked)
	require.NoError(t, err)
	n, err = store.RecordFailedAttempt("c1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertUserByPhone(t *testing.T) {
	store := NewMemoryStore()

	created, err := store.UpsertUserByPhone("555", &models.User{ID: "u1", Nickname: "first"})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.ID)

	// Second upsert is a no-op returning the existing record.
	again, err := store.UpsertUserByPhone("555", &models.User{ID: "u2", Nickname: "second"})
	require.NoError(t, err)
	assert.Equal(t, "u1", again.ID)
	assert.Equal(t, "first", again.Nickname)

	byID, err := store.GetUserByID("u1")
	require.NoError(t, err)
	assert.Equal(t, "555", byID.Phone)
}

func TestTouchLastLogin(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.UpsertUserByPhone("555", &models.User{ID: "u1"})
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, store.TouchLastLogin("u1", at))

	user, err := store.GetUserByID("u1")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	assert.WithinDuration(t, at, *user.LastLoginAt, time.Second)
}

func TestAtomically_CommitAndRollback(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateVerificationCode(pendingCode("c1", "555"))
	require.NoError(t, err)
	_, err = store.TransitionCode("c1", models.CodeStatusPending, models.CodeStatusVerified)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Atomically(func(tx Store) error {
		ok, err := tx.TransitionCode("c1", models.CodeStatusVerified, models.CodeStatusConsumed)
		require.NoError(t, err)
		require.True(t, ok)
		if _, err := tx.UpsertUserByPhone("555", &models.User{ID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Everything inside the failed unit of work is rolled back.
	code, err := store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusVerified)
	require.NoError(t, err)
	assert.Equal(t, models.CodeStatusVerified, code.Status)
	_, err = store.GetUserByPhone("555")
	assert.ErrorIs(t, err, ErrNotFound)

	// The same work commits when fn succeeds.
	err = store.Atomically(func(tx Store) error {
		if _, err := tx.TransitionCode("c1", models.CodeStatusVerified, models.CodeStatusConsumed); err != nil {
			return err
		}
		_, err := tx.UpsertUserByPhone("555", &models.User{ID: "u1"})
		return err
	})
	require.NoError(t, err)

	_, err = store.GetLatestVerificationCode("555", models.PurposeLogin, models.CodeStatusConsumed)
	assert.NoError(t, err)
	_, err = store.GetUserByPhone("555")
	assert.NoError(t, err)
}
