package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRegisterRequest payload for sign-up.
type UserRegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest payload for admin-created accounts.
type CreateUserRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// CreateUserResponse carries the generated password once.
type CreateUserResponse struct {
	User              UserResponse `json:"user"`
	TemporaryPassword string       `json:"temporary_password,omitempty"`
}

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.AccountStatus `json:"status"`
}

// UserResponse is the public view of a helpdesk profile.
type UserResponse struct {
	UID           string               `json:"uid"`
	Email         string               `json:"email"`
	Name          string               `json:"name"`
	Role          domain.Role          `json:"role"`
	CustomUID     string               `json:"custom_uid"`
	Username      string               `json:"username"`
	Verified      bool                 `json:"verified"`
	VerifiedAt    *time.Time           `json:"verified_at,omitempty"`
	AccountStatus domain.AccountStatus `json:"account_status"`
	ActiveTickets int                  `json:"active_tickets"`
	TotalResolved int                  `json:"total_resolved"`
	CreatedAt     time.Time            `json:"created_at"`
}
