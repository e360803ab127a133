package models

import (
	"errors"
	"strings"
	"time"
)

// Dashboard roles. Only super admins may run bulk operations.
const (
	RoleSuperAdmin         = "super_admin"
	RoleApprover           = "approver"
	RoleMarketing          = "marketing"
	RoleSalesAgent         = "sales_agent"
	RoleReception          = "reception"
	RoleExecutiveAssistant = "executive_assistant"
)

var knownRoles = map[string]struct{}{
	RoleSuperAdmin: {}, RoleApprover: {}, RoleMarketing: {},
	RoleSalesAgent: {}, RoleReception: {}, RoleExecutiveAssistant: {},
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return errors.New("username too short")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.Role == "" {
		u.Role = RoleSalesAgent
	}
	if _, ok := knownRoles[u.Role]; !ok {
		return errors.New("unknown role")
	}
	return nil
}
