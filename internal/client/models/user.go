package models

import (
	"strings"
	"time"
)

// RoleAdmin is the role string the backend reports for administrators.
const RoleAdmin = "admin"

// User is the identity record returned by the profile and login endpoints.
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role,omitempty"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// DisplayName prefers "First Last" and falls back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Session is the persisted authentication triple.
type Session struct {
	Token  string
	Expiry time.Time
	User   *User
}

// Stale reports whether the session is past its expiry at now.
func (s Session) Stale(now time.Time) bool {
	return !now.Before(s.Expiry)
}

// RegisterRequest is the payload of the registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Activity is one entry of the account activity log, newest first.
type Activity struct {
	Date     string `json:"date"`
	Action   string `json:"action"`
	IP       string `json:"ip"`
	Location string `json:"location"`
	Device   string `json:"device"`
}
