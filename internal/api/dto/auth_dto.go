package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// LoginRequest accepts form or JSON credentials. Username is the email.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	UserID      string      `json:"user_id"`
	Role        domain.Role `json:"role"`
}

// RegisterPorterRequest payload.
type RegisterPorterRequest struct {
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// PorterResponse is the public porter view.
type PorterResponse struct {
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Email     *string     `json:"email"`
	Phone     *string     `json:"phone"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewPorterResponse(p *domain.Porter) PorterResponse {
	return PorterResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      p.Role,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}
