package services

import (
	"errors"
)

// User-facing messages. The UI shows these verbatim.
const (
	MsgEmailRequired      = "Email is required"
	MsgPasswordRequired   = "Password is required"
	MsgInvalidCredentials = "Invalid email or password"
	MsgAccessDenied       = "Access denied."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgLoginTimeout       = "Login request timed out. Please try again."
	MsgUnreachable        = "Unable to reach the server. Please check your connection and try again."
	MsgMFANoSession       = "MFA verification required but no session token was provided."
	MsgRegisterFailed     = "Registration failed. Please try again."
	MsgInvalidCode        = "Please enter a valid 6-digit code"
	MsgMFAFailed          = "MFA verification failed. Please try again."
	MsgAuthRequired       = "Authentication required. Please log in again."
	MsgSessionSaveFailed  = "Unable to save your session. Please try again."
	MsgGeneric            = "Something went wrong. Please try again."
)

// ValidationError is a local input problem; no request was made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string       { return e.Msg }
func (e *ValidationError) UserMessage() string { return e.Msg }

// UserError pairs a user-facing message with the underlying cause.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error       { return e.Err }
func (e *UserError) UserMessage() string { return e.Msg }

func userError(msg string, err error) error {
	return &UserError{Msg: msg, Err: err}
}

// Message normalizes any error into the single string shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return MsgGeneric
}
