package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
)

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	BearerToken() string
}

// MFAService manages enrollment of the signed-in user.
type MFAService interface {
	Status(ctx context.Context) (*models.MFAStatus, error)
	Setup(ctx context.Context) (*models.MFASetup, error)
	Enable(ctx context.Context, code string) (backupCodes []string, err error)
	Disable(ctx context.Context, password string) error
	GenerateBackupCodes(ctx context.Context, password string) ([]string, error)
}

type mfaService struct {
	api    client.Client
	tokens TokenSource
}

func NewMFAService(api client.Client, tokens TokenSource) MFAService {
	return &mfaService{api: api, tokens: tokens}
}

func (s *mfaService) bearer() (string, error) {
	tok := s.tokens.BearerToken()
	if tok == "" {
		return "", userError(MsgAuthRequired, client.ErrUnauthorized)
	}
	return tok, nil
}

func (s *mfaService) Status(ctx context.Context) (*models.MFAStatus, error) {
	tok, err := s.bearer()
	if err != nil {
		return nil, err
	}
	st, err := s.api.MFAStatus(ctx, tok)
	if err != nil {
		return nil, apiError(err, "Unable to load MFA status.")
	}
	return st, nil
}

func (s *mfaService) Setup(ctx context.Context) (*models.MFASetup, error) {
	tok, err := s.bearer()
	if err != nil {
		return nil, err
	}
	setup, err := s.api.SetupMFA(ctx, tok)
	if err != nil {
		return nil, apiError(err, "Failed to set up MFA.")
	}
	return setup, nil
}

func (s *mfaService) Enable(ctx context.Context, code string) ([]string, error) {
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return nil, &ValidationError{Msg: MsgInvalidCode}
	}
	tok, err := s.bearer()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.EnableMFA(ctx, tok, code)
	if err != nil {
		return nil, apiError(err, "Failed to verify MFA code.")
	}
	if !resp.Success {
		return nil, userError("Failed to verify MFA code.", client.ErrInvalidResponse)
	}
	return resp.BackupCodes, nil
}

func (s *mfaService) Disable(ctx context.Context, password string) error {
	if password == "" {
		return &ValidationError{Msg: MsgPasswordRequired}
	}
	tok, err := s.bearer()
	if err != nil {
		return err
	}
	if err := s.api.DisableMFA(ctx, tok, password); err != nil {
		return apiError(err, "Failed to disable MFA.")
	}
	return nil
}

func (s *mfaService) GenerateBackupCodes(ctx context.Context, password string) ([]string, error) {
	if password == "" {
		return nil, &ValidationError{Msg: MsgPasswordRequired}
	}
	tok, err := s.bearer()
	if err != nil {
		return nil, err
	}
	codes, err := s.api.GenerateBackupCodes(ctx, tok, password)
	if err != nil {
		return nil, apiError(err, "Failed to generate backup codes.")
	}
	return codes, nil
}

// apiError prefers the server's own message, then fallback.
func apiError(err error, fallback string) error {
	if errors.Is(err, client.ErrUnavailable) || errors.Is(err, client.ErrTimeout) {
		return userError(MsgUnreachable, err)
	}
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return userError(apiErr.Message, err)
	}
	return userError(fallback, err)
}
