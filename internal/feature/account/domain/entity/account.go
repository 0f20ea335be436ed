// Package entity defines the domain entities for the account feature.
package entity

import "time"

// Role is the authorization level of an account.
type Role string

const (
	// RoleUser is assigned to every account at registration.
	RoleUser Role = "user"
	// RoleAdmin may delete and inspect any account.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account represents a registered user account.
// Credential columns are never exposed outside the usecase layer; callers
// receive PublicProfile or AdminView projections instead.
type Account struct {
	// ID is an opaque UUID assigned at creation.
	ID string `gorm:"primaryKey;size:36"`

	// Nickname is the login name. It is unique across all accounts,
	// including soft-deleted ones, and cannot be changed.
	Nickname string `gorm:"uniqueIndex;size:64;not null"`

	FirstName string `gorm:"size:128"`
	LastName  string `gorm:"size:128"`

	// PasswordHash, Salt and Iterations are always written together.
	PasswordHash string `gorm:"size:128;not null"`
	Salt         string `gorm:"size:64;not null"`
	Iterations   int    `gorm:"not null"`

	Role Role `gorm:"size:16;not null;default:user"`

	// DeletedAt is nil while the account is active.
	DeletedAt *time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;not null"`

	// UpdatedAt is the optimistic concurrency anchor and is maintained
	// explicitly by the usecase layer on every mutation.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null"`
}

// TableName returns the table name for GORM.
func (Account) TableName() string {
	return "accounts"
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Credentials returns the internal credential view of the account.
func (a *Account) Credentials() Credentials {
	return Credentials{
		Hash:       a.PasswordHash,
		Salt:       a.Salt,
		Iterations: a.Iterations,
	}
}

// SetCredentials replaces hash, salt and iteration count in one step.
func (a *Account) SetCredentials(c Credentials) {
	a.PasswordHash = c.Hash
	a.Salt = c.Salt
	a.Iterations = c.Iterations
}

// PublicProfile projects the account onto the fields a client may see.
func (a *Account) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:        a.ID,
		Nickname:  a.Nickname,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AdminView projects the account for administrative inspection.
func (a *Account) AdminView() AdminView {
	return AdminView{
		PublicProfile: a.PublicProfile(),
		DeletedAt:     a.DeletedAt,
	}
}

// Credentials is the derived password secret of an account.
// Hash and Salt are hex encoded.
type Credentials struct {
	Hash       string
	Salt       string
	Iterations int
}

// PublicProfile is the non-sensitive view of an account.
type PublicProfile struct {
	ID        string
	Nickname  string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdminView is a PublicProfile plus the soft delete marker.
type AdminView struct {
	PublicProfile
	DeletedAt *time.Time
}
