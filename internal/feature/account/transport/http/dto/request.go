// Package dto defines data transfer objects for the account feature's HTTP transport layer.
package dto

// RegisterReq represents the request body for the /api/register endpoint.
// Length and whitespace rules are enforced by the usecase, which owns validation.
type RegisterReq struct {
	Nickname  string `json:"nickname" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password" binding:"required"`
}

// LoginReq represents the request body for the /api/login endpoint.
type LoginReq struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileReq represents a partial profile update. Absent fields are left unchanged.
type UpdateProfileReq struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// ChangePasswordReq represents the request body for the /api/me/password endpoint.
type ChangePasswordReq struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}
