package services

import (
	"context"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
)

// SessionEnder is the part of the session manager the account service needs.
type SessionEnder interface {
	TokenSource
	ExpireSession(ctx context.Context)
}

// AccountService covers account-level operations of the signed-in user.
type AccountService interface {
	Activity(ctx context.Context) ([]models.Activity, error)
	DeleteAccount(ctx context.Context, password string) error
}

type accountService struct {
	api     client.Client
	session SessionEnder
}

func NewAccountService(api client.Client, session SessionEnder) AccountService {
	return &accountService{api: api, session: session}
}

func (s *accountService) Activity(ctx context.Context) ([]models.Activity, error) {
	tok := s.session.BearerToken()
	if tok == "" {
		return nil, userError(MsgAuthRequired, client.ErrUnauthorized)
	}
	acts, err := s.api.Activity(ctx, tok)
	if err != nil {
		return nil, apiError(err, "Failed to retrieve account activity.")
	}
	return acts, nil
}

// DeleteAccount removes the account server-side and then ends the local
// session without a server logout.
func (s *accountService) DeleteAccount(ctx context.Context, password string) error {
	if password == "" {
		return &ValidationError{Msg: MsgPasswordRequired}
	}
	tok := s.session.BearerToken()
	if tok == "" {
		return userError(MsgAuthRequired, client.ErrUnauthorized)
	}
	if err := s.api.DeleteAccount(ctx, tok, password); err != nil {
		return apiError(err, "Failed to delete account.")
	}
	s.session.ExpireSession(ctx)
	return nil
}
