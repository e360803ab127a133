package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
	"github.com/baharkarakas/loyalty-admin/internal/api/validate"
	"github.com/baharkarakas/loyalty-admin/internal/auth"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	"github.com/baharkarakas/loyalty-admin/internal/services"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

type AuthHandler struct {
	TM    *auth.TokenManager
	Users Authenticator
}

func NewAuthHandler(tm *auth.TokenManager, users Authenticator) *AuthHandler {
	return &AuthHandler{TM: tm, Users: users}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	var errs validate.Errs
	for _, e := range []*validate.ErrField{validate.Required("email", req.Email), validate.Required("password", req.Password)} {
		if e != nil {
			errs = append(errs, *e)
		}
	}
	if len(errs) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "invalid credentials payload", errs)
		return
	}

	u, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", nil)
			return
		}
		slog.Error("login", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}
	h.issue(w, u.ID, u.Role)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "validation_error", "refresh_token required", nil)
		return
	}
	claims, isRefresh, err := h.TM.ParseAny(req.RefreshToken)
	if err != nil || !isRefresh {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.issue(w, claims.UserID, claims.Role)
}

func (h *AuthHandler) issue(w http.ResponseWriter, userID, role string) {
	access, refresh, exp, err := h.TM.GeneratePair(userID, role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second) / time.Second),
	})
}
