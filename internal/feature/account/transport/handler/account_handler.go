// Package handler provides the HTTP handlers for the account feature.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/transport/http/dto"
	"account_backend/internal/feature/account/usecase"
	jwtmw "account_backend/internal/platform/jwt"
)

const (
	headerLastModified      = "Last-Modified"
	headerIfUnmodifiedSince = "If-Unmodified-Since"
)

// AccountUsecase defines the account operations exposed over HTTP.
// Following Go convention, the interface is defined by the consumer (handler), not the provider (usecase).
type AccountUsecase interface {
	Register(ctx context.Context, in usecase.RegisterInput) (entity.PublicProfile, error)
	Login(ctx context.Context, nickname, password string) (*usecase.LoginResult, error)
	GetProfile(ctx context.Context, accountID string) (*usecase.ProfileResult, error)
	UpdateProfile(ctx context.Context, in usecase.UpdateProfileInput) (*usecase.ProfileResult, error)
	ChangePassword(ctx context.Context, in usecase.ChangePasswordInput) (*usecase.ProfileResult, error)
	DeleteAccount(ctx context.Context, requester usecase.Requester, targetID string) error
	InspectAccount(ctx context.Context, requester usecase.Requester, targetID string) (*entity.AdminView, error)
}

// AccountHandler handles HTTP requests for account operations.
type AccountHandler struct {
	accounts AccountUsecase
}

// NewAccountHandler creates a new instance of AccountHandler.
func NewAccountHandler(accounts AccountUsecase) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register handles POST /api/register.
// The new account is not logged in; the client calls /api/login next.
func (h *AccountHandler) Register(c *gin.Context) {
	var req dto.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}

	profile, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Nickname:  req.Nickname,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, "register", err)
		return
	}
	slog.Info("account registered", "account_id", profile.ID, "nickname", profile.Nickname, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.MessageResponse{Message: "User created"})
}

// Login handles POST /api/login.
// Every authentication failure gets the same 401 body.
func (h *AccountHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		writeError(c, "login", err)
		return
	}
	slog.Info("login successful", "nickname", req.Nickname, "role", res.Role, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.LoginRes{Token: res.Token, Role: string(res.Role), ExpiresAt: res.ExpiresAt})
}

// GetMe handles GET /api/me and sets Last-Modified to the precondition token.
func (h *AccountHandler) GetMe(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	res, err := h.accounts.GetProfile(c.Request.Context(), requester.AccountID)
	if err != nil {
		writeError(c, "get profile", err)
		return
	}
	writeProfile(c, res)
}

// UpdateMe handles PUT /api/me (and the legacy PUT /api/update).
// An If-Unmodified-Since header makes the write conditional; an empty body
// only advances the modification time.
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	precondition, err := parsePrecondition(c)
	if err != nil {
		slog.Warn("invalid precondition header", "error", err, "value", c.GetHeader(headerIfUnmodifiedSince), "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid If-Unmodified-Since header"})
		return
	}

	var req dto.UpdateProfileReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("update validation failed", "error", err, "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
			return
		}
	}

	res, err := h.accounts.UpdateProfile(c.Request.Context(), usecase.UpdateProfileInput{
		AccountID:    requester.AccountID,
		Precondition: precondition,
		Patch:        usecase.ProfilePatch{FirstName: req.FirstName, LastName: req.LastName},
	})
	if err != nil {
		writeError(c, "update profile", err)
		return
	}
	slog.Info("profile updated", "account_id", requester.AccountID, "conditional", precondition != nil, "remote_addr", c.ClientIP())
	writeProfile(c, res)
}

// ChangePassword handles PUT /api/me/password.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("change password validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request"})
		return
	}

	res, err := h.accounts.ChangePassword(c.Request.Context(), usecase.ChangePasswordInput{
		AccountID:   requester.AccountID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		writeError(c, "change password", err)
		return
	}
	slog.Info("password changed", "account_id", requester.AccountID, "remote_addr", c.ClientIP())
	c.Header(headerLastModified, res.LastModified.Format(http.TimeFormat))
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password changed"})
}

// GetUser handles GET /api/users/:id for the account owner or an admin.
// Soft-deleted accounts are included.
func (h *AccountHandler) GetUser(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	view, err := h.accounts.InspectAccount(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		writeError(c, "inspect account", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountRes(*view))
}

// DeleteUser handles DELETE /api/users/:id for the account owner or an admin.
func (h *AccountHandler) DeleteUser(c *gin.Context) {
	requester, ok := requesterFrom(c)
	if !ok {
		return
	}

	targetID := c.Param("id")
	if err := h.accounts.DeleteAccount(c.Request.Context(), requester, targetID); err != nil {
		writeError(c, "delete account", err)
		return
	}
	slog.Info("account soft-deleted", "account_id", targetID, "requester_id", requester.AccountID, "requester_role", requester.Role, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "User soft-deleted"})
}

// requesterFrom reads the principal set by the auth middleware. It writes a
// 401 and returns false when the route was mounted without the middleware.
func requesterFrom(c *gin.Context) (usecase.Requester, bool) {
	id, role, ok := jwtmw.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: jwtmw.ErrTokenMissing.Error()})
		return usecase.Requester{}, false
	}
	return usecase.Requester{AccountID: id, Role: role}, true
}

// parsePrecondition returns the If-Unmodified-Since value, or nil when the header is absent.
func parsePrecondition(c *gin.Context) (*time.Time, error) {
	raw := c.GetHeader(headerIfUnmodifiedSince)
	if raw == "" {
		return nil, nil
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func writeProfile(c *gin.Context, res *usecase.ProfileResult) {
	c.Header(headerLastModified, res.LastModified.Format(http.TimeFormat))
	c.JSON(http.StatusOK, dto.NewProfileRes(res.Profile))
}
