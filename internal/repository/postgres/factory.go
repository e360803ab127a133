package postgres

import (
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users     repo.Users
	Records   repo.Records
	AuditLogs repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:     &usersRepo{pool},
		Records:   &recordsRepo{pool},
		AuditLogs: &auditLogsRepo{pool},
	}
}
