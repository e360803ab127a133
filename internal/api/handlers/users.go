package handlers

import (
	"context"
	"net/http"

	"github.com/baharkarakas/loyalty-admin/internal/api/httpx"
	"github.com/baharkarakas/loyalty-admin/internal/models"
)

// UserService is what login and user administration need.
type UserService interface {
	Authenticator
	Register(ctx context.Context, username, email, password, role string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type UserHandler struct {
	Svc UserService
}

func NewUserHandler(svc UserService) *UserHandler { return &UserHandler{Svc: svc} }

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register: POST /users. Roles default to sales_agent.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	u, err := h.Svc.Register(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

// List: GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}
