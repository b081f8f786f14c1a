package dto

import "github.com/jhoicas/scanner-agent/internal/domain/entity"

// LoginRequest body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse token + user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
	Error string       `json:"error,omitempty"`
}

// UserResponse user as returned by the backend login.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CompanyID int64  `json:"company_id"`
}

// ToEntity maps to the domain operator.
func (u UserResponse) ToEntity() *entity.Operator {
	return &entity.Operator{ID: u.ID, Username: u.Username, CompanyID: u.CompanyID}
}

// TokenRequest body for POST /api/token. The PIN is checked against the
// station's bcrypt hashes.
type TokenRequest struct {
	Username  string `json:"username"`
	PIN       string `json:"pin"`
	CompanyID int64  `json:"company_id"`
}

// TokenResponse operator API token.
type TokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
