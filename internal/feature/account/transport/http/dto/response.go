package dto

import (
	"time"

	"account_backend/internal/feature/account/domain/entity"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRes is returned by a successful login.
type LoginRes struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProfileRes is the client-visible shape of an account.
type ProfileRes struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountRes is the administrative shape of an account.
type AccountRes struct {
	ProfileRes
	DeletedAt *time.Time `json:"deletedAt"`
}

// NewProfileRes converts a PublicProfile to its response shape.
func NewProfileRes(p entity.PublicProfile) ProfileRes {
	return ProfileRes{
		ID:        p.ID,
		Nickname:  p.Nickname,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// NewAccountRes converts an AdminView to its response shape.
func NewAccountRes(v entity.AdminView) AccountRes {
	return AccountRes{
		ProfileRes: NewProfileRes(v.PublicProfile),
		DeletedAt:  v.DeletedAt,
	}
}
