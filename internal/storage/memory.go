package storage

import (
	"sync"
	"time"

	"github.com/drawmart/drawmart-backend/internal/models"
)

// MemoryStore holds all data in memory. Used for tests and local development
// (USE_MEMORY_STORE=true). A single mutex guards everything so Atomically can
// snapshot and roll back the whole state.
type MemoryStore struct {
	mu     sync.Mutex
	codes  []*models.VerificationCode // insertion order, newest last
	users  map[string]*models.User    // keyed by phone
	audits []*models.LoginAudit
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
	}
}

func (m *MemoryStore) CreateVerificationCode(code *models.VerificationCode) (*models.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createVerificationCode(code)
}

func (m *MemoryStore) GetLatestVerificationCode(phone, purpose string, statuses ...string) (*models.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLatestVerificationCode(phone, purpose, statuses...)
}

func (m *MemoryStore) MarkCodeVerified(id string, maxAttempts int, verifiedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markCodeVerified(id, maxAttempts, verifiedAt)
}

func (m *MemoryStore) RecordFailedAttempt(id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordFailedAttempt(id)
}

func (m *MemoryStore) TransitionCode(id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionCode(id, from, to)
}

func (m *MemoryStore) GetUserByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUserByID(id)
}

func (m *MemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getUserByPhone(phone)
}

func (m *MemoryStore) UpsertUserByPhone(phone string, defaults *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertUserByPhone(phone, defaults)
}

func (m *MemoryStore) TouchLastLogin(userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touchLastLogin(userID, at)
}

func (m *MemoryStore) CreateLoginAudit(entry *models.LoginAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLoginAudit(entry)
}

// Atomically takes the store lock for the whole unit of work and restores a
// snapshot of the state if fn fails, mirroring a database rollback.
func (m *MemoryStore) Atomically(fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	codes, users, audits := m.snapshot()
	if err := fn(&memoryTx{m: m}); err != nil {
		m.codes, m.users, m.audits = codes, users, audits
		return err
	}
	return nil
}

func (m *MemoryStore) snapshot() ([]*models.VerificationCode, map[string]*models.User, []*models.LoginAudit) {
	codes := make([]*models.VerificationCode, len(m.codes))
	for i, c := range m.codes {
		cp := *c
		codes[i] = &cp
	}
	users := make(map[string]*models.User, len(m.users))
	for k, u := range m.users {
		cp := *u
		users[k] = &cp
	}
	audits := make([]*models.LoginAudit, len(m.audits))
	copy(audits, m.audits)
	return codes, users, audits
}

// memoryTx exposes the unlocked operations to a function already running
// under the store lock.
type memoryTx struct {
	m *MemoryStore
}

func (t *memoryTx) CreateVerificationCode(code *models.VerificationCode) (*models.VerificationCode, error) {
	return t.m.createVerificationCode(code)
}

func (t *memoryTx) GetLatestVerificationCode(phone, purpose string, statuses ...string) (*models.VerificationCode, error) {
	return t.m.getLatestVerificationCode(phone, purpose, statuses...)
}

func (t *memoryTx) MarkCodeVerified(id string, maxAttempts int, verifiedAt time.Time) (bool, error) {
	return t.m.markCodeVerified(id, maxAttempts, verifiedAt)
}

func (t *memoryTx) RecordFailedAttempt(id string) (int, error) {
	return t.m.recordFailedAttempt(id)
}

func (t *memoryTx) TransitionCode(id, from, to string) (bool, error) {
	return t.m.transitionCode(id, from, to)
}

func (t *memoryTx) GetUserByID(id string) (*models.User, error) {
	return t.m.getUserByID(id)
}

func (t *memoryTx) GetUserByPhone(phone string) (*models.User, error) {
	return t.m.getUserByPhone(phone)
}

func (t *memoryTx) UpsertUserByPhone(phone string, defaults *models.User) (*models.User, error) {
	return t.m.upsertUserByPhone(phone, defaults)
}

func (t *memoryTx) TouchLastLogin(userID string, at time.Time) error {
	return t.m.touchLastLogin(userID, at)
}

func (t *memoryTx) CreateLoginAudit(entry *models.LoginAudit) error {
	return t.m.createLoginAudit(entry)
}

func (t *memoryTx) Atomically(fn func(Store) error) error {
	// Already inside the unit of work.
	return fn(t)
}

// --- unlocked implementations ---

func (m *MemoryStore) createVerificationCode(code *models.VerificationCode) (*models.VerificationCode, error) {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	m.codes = append(m.codes, code)
	return code, nil
}

func (m *MemoryStore) getLatestVerificationCode(phone, purpose string, statuses ...string) (*models.VerificationCode, error) {
	for i := len(m.codes) - 1; i >= 0; i-- {
		c := m.codes[i]
		if c.Phone != phone || c.Purpose != purpose {
			continue
		}
		for _, s := range statuses {
			if c.Status == s {
				cp := *c
				return &cp, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) findCode(id string) *models.VerificationCode {
	for _, c := range m.codes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *MemoryStore) markCodeVerified(id string, maxAttempts int, verifiedAt time.Time) (bool, error) {
	c := m.findCode(id)
	if c == nil || c.Status != models.CodeStatusPending || c.AttemptCount >= maxAttempts {
		return false, nil
	}
	at := verifiedAt
	c.Status = models.CodeStatusVerified
	c.VerifiedAt = &at
	c.AttemptCount++
	return true, nil
}

func (m *MemoryStore) recordFailedAttempt(id string) (int, error) {
	c := m.findCode(id)
	if c == nil || c.Status != models.CodeStatusPending {
		return 0, nil
	}
	c.AttemptCount++
	return c.AttemptCount, nil
}

func (m *MemoryStore) transitionCode(id, from, to string) (bool, error) {
	c := m.findCode(id)
	if c == nil || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *MemoryStore) getUserByID(id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) getUserByPhone(phone string) (*models.User, error) {
	u, exists := m.users[phone]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) upsertUserByPhone(phone string, defaults *models.User) (*models.User, error) {
	if u, exists := m.users[phone]; exists {
		cp := *u
		return &cp, nil
	}
	defaults.Phone = phone
	now := time.Now()
	defaults.CreatedAt = now
	defaults.UpdatedAt = now
	m.users[phone] = defaults
	cp := *defaults
	return &cp, nil
}

func (m *MemoryStore) touchLastLogin(userID string, at time.Time) error {
	for _, u := range m.users {
		if u.ID == userID {
			t := at
			u.LastLoginAt = &t
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) createLoginAudit(entry *models.LoginAudit) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.audits = append(m.audits, entry)
	return nil
}

// LoginAudits returns a copy of all audit entries, newest last. Test helper.
func (m *MemoryStore) LoginAudits() []*models.LoginAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.LoginAudit, len(m.audits))
	copy(out, m.audits)
	return out
}
