package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"account_backend/internal/feature/account/domain/entity"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 1024
	maxNicknameLength = 64
	maxNameLength     = 128

	// maxUpdateAttempts bounds the retries of an unconditional write that
	// keeps losing the compare-and-swap to concurrent writers.
	maxUpdateAttempts = 5

	// fallbackDummyHash and fallbackDummySalt match no password.
	fallbackDummyHash = "00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"
	fallbackDummySalt = "00000000000000000000000000000000"
)

// errAlreadyDeleted aborts a delete mutation without writing.
var errAlreadyDeleted = errors.New("account already deleted")

// AccountRepository abstracts the persistence layer for account entities.
// Following Go convention, the interface is defined by the consumer (usecase), not the provider (adapters).
type AccountRepository interface {
	// Create persists a new account. It returns ErrNicknameTaken when the
	// nickname is already used by any account, deleted or not.
	Create(ctx context.Context, account *entity.Account) error

	// FindActiveByNickname returns the non-deleted account with the nickname,
	// or ErrAccountNotFound.
	FindActiveByNickname(ctx context.Context, nickname string) (*entity.Account, error)

	// FindActiveByID returns the non-deleted account with the ID, or ErrAccountNotFound.
	// The result may be served from a cache without credentials; password
	// checks go through FindActiveByNickname or Update.
	FindActiveByID(ctx context.Context, id string) (*entity.Account, error)

	// FindByID returns the account with the ID regardless of delete state,
	// or ErrAccountNotFound.
	FindByID(ctx context.Context, id string) (*entity.Account, error)

	// Update loads the account (regardless of delete state), applies mutate
	// and writes the result only if UpdatedAt still holds the value that was
	// loaded. It returns ErrConcurrentUpdate when that check fails and
	// mutate's error unchanged when mutate aborts.
	Update(ctx context.Context, id string, mutate func(*entity.Account) error) (*entity.Account, error)
}

// PasswordHasher derives and verifies password credentials.
type PasswordHasher interface {
	Derive(password string) (entity.Credentials, error)
	Verify(c entity.Credentials, password string) bool
	Iterations() int
}

// TokenIssuer issues bearer tokens.
// Following Go convention, the interface is defined by the consumer (usecase), not the provider (platform/jwt).
type TokenIssuer interface {
	Issue(accountID string, role entity.Role) (string, time.Time, error)
}

// RegisterInput is the request for Register. FirstName and LastName are optional.
type RegisterInput struct {
	Nickname  string
	FirstName string
	LastName  string
	Password  string
}

// LoginResult carries the issued token and the role it encodes.
type LoginResult struct {
	Token     string
	Role      entity.Role
	ExpiresAt time.Time
}

// ProfileResult is a profile together with its precondition token.
type ProfileResult struct {
	Profile      entity.PublicProfile
	LastModified time.Time
}

// ProfilePatch lists the mutable profile fields. Nil fields are left unchanged.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
}

// UpdateProfileInput is the request for UpdateProfile. Precondition is the
// token the client last observed, or nil for an unconditional write.
type UpdateProfileInput struct {
	AccountID    string
	Precondition *time.Time
	Patch        ProfilePatch
}

// ChangePasswordInput is the request for ChangePassword.
type ChangePasswordInput struct {
	AccountID   string
	OldPassword string
	NewPassword string
}

// accountUsecase implements the account lifecycle.
type accountUsecase struct {
	accounts AccountRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	guard    *ConcurrencyGuard
	now      func() time.Time

	dummyMu    sync.Mutex
	dummyCreds entity.Credentials
}

// NewAccountUsecase creates a new instance of accountUsecase.
func NewAccountUsecase(accounts AccountRepository, hasher PasswordHasher, tokens TokenIssuer, guard *ConcurrencyGuard) *accountUsecase {
	if guard == nil {
		guard = NewConcurrencyGuard(DefaultPreconditionTolerance)
	}
	return &accountUsecase{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		guard:    guard,
		now:      time.Now,
	}
}

// Register creates a new account with role user. It does not log the account in.
func (u *accountUsecase) Register(ctx context.Context, in RegisterInput) (entity.PublicProfile, error) {
	nickname, err := normalizeNickname(in.Nickname)
	if err != nil {
		return entity.PublicProfile{}, err
	}
	if err := validateName("firstName", in.FirstName); err != nil {
		return entity.PublicProfile{}, err
	}
	if err := validateName("lastName", in.LastName); err != nil {
		return entity.PublicProfile{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return entity.PublicProfile{}, err
	}

	creds, err := u.hasher.Derive(in.Password)
	if err != nil {
		return entity.PublicProfile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := u.now().UTC().Truncate(timestampResolution)
	account := &entity.Account{
		ID:        uuid.NewString(),
		Nickname:  nickname,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      entity.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	account.SetCredentials(creds)

	if err := u.accounts.Create(ctx, account); err != nil {
		return entity.PublicProfile{}, err
	}
	return account.PublicProfile(), nil
}

// Login authenticates a nickname/password pair and issues a token.
// Unknown nicknames, deleted accounts and wrong passwords all return
// ErrInvalidCredentials, and a password derivation runs in every case.
func (u *accountUsecase) Login(ctx context.Context, nickname, password string) (*LoginResult, error) {
	account, err := u.accounts.FindActiveByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	creds := u.dummyCredentials()
	if account != nil {
		creds = account.Credentials()
	}
	matched := u.hasher.Verify(creds, password)

	if account == nil || !matched {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := u.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &LoginResult{Token: token, Role: account.Role, ExpiresAt: expiresAt}, nil
}

// GetProfile returns the caller's own profile and its precondition token.
func (u *accountUsecase) GetProfile(ctx context.Context, accountID string) (*ProfileResult, error) {
	account, err := u.accounts.FindActiveByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.profileResult(account), nil
}

// UpdateProfile applies a partial profile update guarded by the optional
// precondition. The modification time advances even when no field changes.
func (u *accountUsecase) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*ProfileResult, error) {
	if in.Patch.FirstName != nil {
		if err := validateName("firstName", *in.Patch.FirstName); err != nil {
			return nil, err
		}
	}
	if in.Patch.LastName != nil {
		if err := validateName("lastName", *in.Patch.LastName); err != nil {
			return nil, err
		}
	}

	account, err := u.update(ctx, in.AccountID, in.Precondition, func(a *entity.Account) error {
		if a.IsDeleted() {
			return ErrAccountNotFound
		}
		if err := u.guard.Check(a.UpdatedAt, in.Precondition); err != nil {
			return err
		}
		if in.Patch.FirstName != nil {
			a.FirstName = strings.TrimSpace(*in.Patch.FirstName)
		}
		if in.Patch.LastName != nil {
			a.LastName = strings.TrimSpace(*in.Patch.LastName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.profileResult(account), nil
}

// ChangePassword replaces the password after verifying the old one.
// Nothing is written when verification fails.
func (u *accountUsecase) ChangePassword(ctx context.Context, in ChangePasswordInput) (*ProfileResult, error) {
	if err := validatePassword(in.NewPassword); err != nil {
		return nil, err
	}

	account, err := u.update(ctx, in.AccountID, nil, func(a *entity.Account) error {
		if a.IsDeleted() {
			return ErrAccountNotFound
		}
		if !u.hasher.Verify(a.Credentials(), in.OldPassword) {
			return ErrInvalidCredentials
		}
		creds, err := u.hasher.Derive(in.NewPassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		a.SetCredentials(creds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.profileResult(account), nil
}

// DeleteAccount soft-deletes the target account if the requester is allowed
// to. Deleting an already deleted account succeeds and keeps the original
// deletion time.
func (u *accountUsecase) DeleteAccount(ctx context.Context, requester Requester, targetID string) error {
	if !CanDelete(requester, targetID) {
		return ErrForbidden
	}

	_, err := u.update(ctx, targetID, nil, func(a *entity.Account) error {
		if a.IsDeleted() {
			return errAlreadyDeleted
		}
		deletedAt := u.now().UTC().Truncate(timestampResolution)
		a.DeletedAt = &deletedAt
		return nil
	})
	if errors.Is(err, errAlreadyDeleted) {
		return nil
	}
	return err
}

// InspectAccount returns the administrative view of an account, including
// soft-deleted ones, to the account owner or an admin.
func (u *accountUsecase) InspectAccount(ctx context.Context, requester Requester, targetID string) (*entity.AdminView, error) {
	if !CanInspect(requester, targetID) {
		return nil, ErrForbidden
	}
	account, err := u.accounts.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	view := account.AdminView()
	return &view, nil
}

// GrantRole sets the role of an active account. It is an operator action and
// is not exposed over HTTP. Tokens issued before the change keep their role
// claim until they expire.
func (u *accountUsecase) GrantRole(ctx context.Context, nickname string, role entity.Role) (*entity.PublicProfile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	account, err := u.accounts.FindActiveByNickname(ctx, strings.TrimSpace(nickname))
	if err != nil {
		return nil, err
	}

	updated, err := u.update(ctx, account.ID, nil, func(a *entity.Account) error {
		if a.IsDeleted() {
			return ErrAccountNotFound
		}
		a.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	profile := updated.PublicProfile()
	return &profile, nil
}

// update runs mutate through the repository's compare-and-swap and advances
// the modification time. A lost race fails fast with ErrPreconditionFailed
// when the caller supplied a precondition and is retried otherwise.
func (u *accountUsecase) update(ctx context.Context, id string, precondition *time.Time, mutate func(*entity.Account) error) (*entity.Account, error) {
	for attempt := 1; ; attempt++ {
		account, err := u.accounts.Update(ctx, id, func(a *entity.Account) error {
			if err := mutate(a); err != nil {
				return err
			}
			a.UpdatedAt = u.guard.Advance(a.UpdatedAt, u.now())
			return nil
		})
		if !errors.Is(err, ErrConcurrentUpdate) {
			return account, err
		}
		if precondition != nil {
			return nil, ErrPreconditionFailed
		}
		if attempt >= maxUpdateAttempts {
			return nil, err
		}
	}
}

func (u *accountUsecase) profileResult(a *entity.Account) *ProfileResult {
	return &ProfileResult{
		Profile:      a.PublicProfile(),
		LastModified: u.guard.Token(a.UpdatedAt),
	}
}

// dummyCredentials returns credentials for a random password, used to keep
// the cost of a failed lookup equal to a failed password check. A failed
// derivation is not cached; the fixed fallback still costs a full derivation.
func (u *accountUsecase) dummyCredentials() entity.Credentials {
	u.dummyMu.Lock()
	defer u.dummyMu.Unlock()

	if u.dummyCreds.Hash != "" {
		return u.dummyCreds
	}

	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	creds, err := u.hasher.Derive(hex.EncodeToString(buf))
	if err != nil {
		slog.Warn("failed to derive dummy credentials, using fallback", "error", err)
		return entity.Credentials{
			Hash:       fallbackDummyHash,
			Salt:       fallbackDummySalt,
			Iterations: u.hasher.Iterations(),
		}
	}
	u.dummyCreds = creds
	return creds
}

func normalizeNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", fmt.Errorf("%w: nickname is required", ErrValidation)
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength {
		return "", fmt.Errorf("%w: nickname must be at most %d characters long", ErrValidation, maxNicknameLength)
	}
	if strings.IndexFunc(nickname, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: nickname must not contain whitespace", ErrValidation)
	}
	return nickname, nil
}

func validateName(field, value string) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > maxNameLength {
		return fmt.Errorf("%w: %s must be at most %d characters long", ErrValidation, field, maxNameLength)
	}
	return nil
}

// validatePassword checks that a password satisfies the length requirements.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes long", ErrValidation, maxPasswordLength)
	}
	return nil
}
