// Package usecase implements the business logic for the account feature.
package usecase

import "errors"

var (
	// ErrValidation is returned for malformed input. Callers wrap it with details.
	ErrValidation = errors.New("validation failed")

	// ErrNicknameTaken is returned when registering a nickname that already exists,
	// including nicknames of soft-deleted accounts.
	ErrNicknameTaken = errors.New("nickname already exists")

	// ErrInvalidCredentials is returned for every login failure: unknown nickname,
	// deleted account or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when an authenticated caller lacks the rights for an operation.
	ErrForbidden = errors.New("access denied")

	// ErrAccountNotFound is returned when an account cannot be found by ID or nickname.
	ErrAccountNotFound = errors.New("account not found")

	// ErrPreconditionFailed is returned when a write carries a stale precondition.
	ErrPreconditionFailed = errors.New("precondition failed: data outdated")

	// ErrConcurrentUpdate is returned by repositories when the record changed between
	// read and write. The usecase layer retries unconditional writes on it.
	ErrConcurrentUpdate = errors.New("account was modified concurrently")
)
