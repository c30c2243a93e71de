package client

import (
	"context"

	"github.com/dmitrijs2005/docverify/internal/client/models"
)

// Client is the backend API used by the session and verification layers.
// Calls taking a token send it as the bearer credential.
type Client interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*AuthResponse, error)
	Me(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
	Activity(ctx context.Context, token string) ([]models.Activity, error)
	DeleteAccount(ctx context.Context, token, password string) error

	VerifyMFA(ctx context.Context, mfaSessionToken, code string) (*models.MFAVerifyResponse, error)
	VerifyMFAToken(ctx context.Context, token, code string) (*VerifyTokenResponse, error)
	MFAStatus(ctx context.Context, token string) (*models.MFAStatus, error)
	SetupMFA(ctx context.Context, token string) (*models.MFASetup, error)
	EnableMFA(ctx context.Context, token, code string) (*models.MFAVerifyResponse, error)
	DisableMFA(ctx context.Context, token, password string) error
	GenerateBackupCodes(ctx context.Context, token, password string) ([]string, error)

	UploadDocument(ctx context.Context, token, mfaToken string, req models.UploadRequest) (*models.UploadResponse, error)
}

// AuthResponse is the body of login and registration. Either Token and User
// are set, or the step-up flag and MFASessionToken.
type AuthResponse struct {
	Token           string       `json:"token,omitempty"`
	User            *models.User `json:"user,omitempty"`
	MFARequired     bool         `json:"mfa_required,omitempty"`
	RequiresMFA     bool         `json:"requires_mfa,omitempty"`
	MFASessionToken string       `json:"mfa_session_token,omitempty"`
	UserID          string       `json:"user_id,omitempty"`
	Email           string       `json:"email,omitempty"`
	Message         string       `json:"message,omitempty"`
}

// StepUp reports whether the backend asked for a second factor. Both
// spellings of the flag are in use.
func (r AuthResponse) StepUp() bool { return r.MFARequired || r.RequiresMFA }

// VerifyTokenResponse is the body of POST /api/mfa/verify-token.
type VerifyTokenResponse struct {
	Success  bool   `json:"success"`
	MFAToken string `json:"mfa_token,omitempty"`
	Message  string `json:"message,omitempty"`
}
