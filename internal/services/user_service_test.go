package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/loyalty-admin/internal/api/validate"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
)

func TestAuthenticate(t *testing.T) {
	svc := NewUserService(newMemUsers())
	ctx := context.Background()
	_, err := svc.Register(ctx, "jane", "jane@example.com", "long-password", models.RoleApprover)
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "jane@example.com", "long-password")
	require.NoError(t, err)
	assert.Equal(t, models.RoleApprover, u.Role)

	_, err = svc.Authenticate(ctx, "jane@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "who@example.com", "long-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(newMemUsers())
	ctx := context.Background()

	_, err := svc.Register(ctx, "jo", "jo@example.com", "long-password", "")
	assert.Error(t, err)
	_, err = svc.Register(ctx, "jane", "jane@example.com", "short", "")
	var errs validate.Errs
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "password", errs[0].Field)
	_, err = svc.Register(ctx, "jane", "jane@example.com", "long-password", "janitor")
	assert.Error(t, err)

	u, err := svc.Register(ctx, "jane", "jane@example.com", "long-password", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSalesAgent, u.Role)

	_, err = svc.Register(ctx, "jane2", "jane@example.com", "long-password", "")
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	users := newMemUsers()
	svc := NewUserService(users)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "long-password"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "other-password"))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.RoleSuperAdmin, all[0].Role)
	assert.Equal(t, "root", all[0].Username)

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
}
