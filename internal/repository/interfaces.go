package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/loyalty-admin/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// Records is the ledger table. Bulk methods touch every eligible record of
// the ledger and report how many rows changed.
type Records interface {
	Page(ctx context.Context, ledger models.Ledger, search string, limit, offset int) ([]models.Record, int, error)
	Get(ctx context.Context, ledger models.Ledger, id int64) (models.Record, error)
	SetBalance(ctx context.Context, ledger models.Ledger, id, value int64) (models.Record, error)
	ApplyDelta(ctx context.Context, ledger models.Ledger, delta int64) (int64, error)
	ResetAll(ctx context.Context, ledger models.Ledger) (int64, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
