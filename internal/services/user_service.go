package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/baharkarakas/loyalty-admin/internal/api/validate"
	"github.com/baharkarakas/loyalty-admin/internal/auth"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	repo "github.com/baharkarakas/loyalty-admin/internal/repository"
)

type UserService struct {
	r repo.Users
}

func NewUserService(r repo.Users) *UserService { return &UserService{r: r} }

func (s *UserService) Register(ctx context.Context, username, email, password, role string) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: role}
	if err := u.Validate(); err != nil {
		return models.User{}, validate.Errs{{Field: "user", Msg: err.Error()}}
	}
	if err := auth.CheckPassword(password); err != nil {
		return models.User{}, validate.Errs{{Field: "password", Msg: err.Error()}}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return s.r.Create(ctx, u.Username, u.Email, hash, u.Role)
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.r.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap super admin unless the email exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.r.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	username, _, _ := strings.Cut(email, "@")
	if len(username) < 3 {
		username = "admin"
	}
	u, err := s.Register(ctx, username, email, password, models.RoleSuperAdmin)
	if err != nil {
		return err
	}
	slog.Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)
	return nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) { return s.r.List(ctx) }
