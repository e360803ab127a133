package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]models.User{}} }

func (m *memUsers) Create(ctx context.Context, username, email, hash, role string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, email) {
			return models.User{}, repo.ErrConflict
		}
	}
	u := models.User{ID: uuid.NewString(), Username: username, Email: email, PasswordHash: hash, Role: role}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (m *memUsers) List(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

type memRecords struct {
	mu   sync.Mutex
	recs []models.Record
}

func (m *memRecords) Page(ctx context.Context, ledger models.Ledger, search string, limit, offset int) ([]models.Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var match []models.Record
	for _, r := range m.recs {
		if r.Ledger == ledger && (search == "" || strings.Contains(strings.ToLower(r.Name), strings.ToLower(search))) {
			match = append(match, r)
		}
	}
	start := min(offset, len(match))
	end := min(start+limit, len(match))
	return match[start:end], len(match), nil
}

func (m *memRecords) Get(ctx context.Context, ledger models.Ledger, id int64) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.Ledger == ledger && r.ID == id {
			return r, nil
		}
	}
	return models.Record{}, repo.ErrNotFound
}

func (m *memRecords) SetBalance(ctx context.Context, ledger models.Ledger, id, value int64) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].Ledger == ledger && m.recs[i].ID == id {
			m.recs[i].Balance = value
			return m.recs[i], nil
		}
	}
	return models.Record{}, repo.ErrNotFound
}

func (m *memRecords) ApplyDelta(ctx context.Context, ledger models.Ledger, delta int64) (int64, error) {
	return m.each(ledger, func(r *models.Record) { r.Balance = max(r.Balance+delta, 0) }), nil
}

func (m *memRecords) ResetAll(ctx context.Context, ledger models.Ledger) (int64, error) {
	return m.each(ledger, func(r *models.Record) { r.Balance = 0 }), nil
}

func (m *memRecords) each(ledger models.Ledger, fn func(*models.Record)) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.recs {
		if m.recs[i].Ledger == ledger && m.recs[i].Eligible {
			fn(&m.recs[i])
			n++
		}
	}
	return n
}

func (m *memRecords) balance(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID == id {
			return r.Balance
		}
	}
	return -1
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *memAudit) Create(ctx context.Context, l models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, l)
	return nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}
