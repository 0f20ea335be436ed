package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"account_backend/internal/feature/account/transport/http/dto"
	"account_backend/internal/feature/account/usecase"
)

// writeError maps usecase errors to HTTP responses. Unclassified errors are
// logged and answered with a generic 500 so internal details never reach the client.
func writeError(c *gin.Context, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, usecase.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrNicknameTaken):
		status, msg = http.StatusBadRequest, usecase.ErrNicknameTaken.Error()
	case errors.Is(err, usecase.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, usecase.ErrInvalidCredentials.Error()
	case errors.Is(err, usecase.ErrForbidden):
		status, msg = http.StatusForbidden, usecase.ErrForbidden.Error()
	case errors.Is(err, usecase.ErrAccountNotFound):
		status, msg = http.StatusNotFound, "user not found"
	case errors.Is(err, usecase.ErrConcurrentUpdate):
		status, msg = http.StatusConflict, usecase.ErrConcurrentUpdate.Error()
	case errors.Is(err, usecase.ErrPreconditionFailed):
		status, msg = http.StatusPreconditionFailed, usecase.ErrPreconditionFailed.Error()
	}

	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err, "remote_addr", c.ClientIP())
	} else {
		slog.Warn(op+" rejected", "error", err, "status", status, "remote_addr", c.ClientIP())
	}
	c.JSON(status, dto.ErrorResponse{Error: msg})
}
