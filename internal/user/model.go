// File: internal/user/model.go
package user

import (
	"time"

	"user_admin_backend/internal/directory"
)

// --- DTOs (Data Transfer Objects) for API requests/responses ---

// CreateUserRequest defines the structure for creating a new user.
// Email format and password length are checked by the identity rules so the
// caller gets the provider's error kind rather than a generic validation error.
type CreateUserRequest struct {
	Email     string         `json:"email" binding:"required"`
	Password  string         `json:"password" binding:"required"`
	Role      directory.Role `json:"role" binding:"required"`
	FirstName string         `json:"first_name,omitempty" binding:"omitempty,max=100"`
	LastName  string         `json:"last_name,omitempty" binding:"omitempty,max=100"`
	Mobile    string         `json:"mobile,omitempty" binding:"omitempty,max=32"`
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Mobile      string         `json:"mobile"`
	Role        directory.Role `json:"role"`
	RoleLabel   string         `json:"role_label"`
	DisplayName string         `json:"display_name"`
	CreatedAt   time.Time      `json:"created_at"`
	LastUpdated time.Time      `json:"last_updated"`
}
