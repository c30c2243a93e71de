package users

import (
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/models"
)

const (
	RoleUser  = "user"
	RoleAdmin = models.RoleAdmin
)

// User is the stored account. MFASecret and PendingMFASecret hold sealed
// (encrypted) TOTP secrets, never plaintext.
type User struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	Role             string
	PasswordHash     []byte
	MFAEnabled       bool
	MFASecret        string
	PendingMFASecret string
	BackupCodes      []string
	FailedAttempts   int
	LockedUntil      time.Time
	CreatedAt        time.Time
}

// RequiresMFA reports whether sensitive endpoints need a second factor.
// Administrators always do.
func (u *User) RequiresMFA() bool {
	return u.MFAEnabled || u.Role == RoleAdmin
}

// Public is the profile shape returned to API clients.
func (u *User) Public() models.User {
	return models.User{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		MFAEnabled: u.MFAEnabled,
	}
}

func (u *User) clone() *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	c.BackupCodes = append([]string(nil), u.BackupCodes...)
	return &c
}

// mfaSession is the short-lived ticket between a password login and its
// second factor. It is single use.
type mfaSession struct {
	userID    string
	expiresAt time.Time
	used      bool
}

// RequestMeta describes the caller for the activity log.
type RequestMeta struct {
	IP        string
	UserAgent string
}
