package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ChallengeService resolves step-up challenges. It does not care why the
// challenge was raised; the outcome echoes the challenge origin and the
// caller decides where to go next. It never touches persisted state.
type ChallengeService interface {
	VerifyChallenge(ctx context.Context, bearer string, c models.Challenge, code string) (models.ChallengeOutcome, error)
}

type challengeService struct {
	api client.Client
	log logging.Logger
}

func NewChallengeService(api client.Client, log logging.Logger) ChallengeService {
	if log == nil {
		log = logging.Nop{}
	}
	return &challengeService{api: api, log: log.With("component", "challenge")}
}

// VerifyChallenge checks code. A challenge with a session token is resolved
// through /api/mfa/verify and yields a new bearer token; one without (raised
// by an authenticated request) is checked with the current bearer and only
// yields the MFA token for the resumed request.
func (s *challengeService) VerifyChallenge(ctx context.Context, bearer string, c models.Challenge, code string) (models.ChallengeOutcome, error) {
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return models.ChallengeOutcome{}, &ValidationError{Msg: MsgInvalidCode}
	}

	if c.SessionToken != "" {
		resp, err := s.api.VerifyMFA(ctx, c.SessionToken, code)
		if err != nil {
			return models.ChallengeOutcome{}, s.failure(ctx, c, err)
		}
		if !resp.Success || resp.Token == "" {
			return models.ChallengeOutcome{}, s.failure(ctx, c, client.ErrInvalidResponse)
		}
		return models.ChallengeOutcome{Token: resp.Token, User: resp.User, MFAToken: code, Origin: c.Origin}, nil
	}

	if bearer == "" {
		return models.ChallengeOutcome{}, userError(MsgAuthRequired, client.ErrUnauthorized)
	}
	resp, err := s.api.VerifyMFAToken(ctx, bearer, code)
	if err != nil {
		return models.ChallengeOutcome{}, s.failure(ctx, c, err)
	}
	if !resp.Success {
		return models.ChallengeOutcome{}, s.failure(ctx, c, client.ErrInvalidResponse)
	}
	return models.ChallengeOutcome{MFAToken: code, Origin: c.Origin}, nil
}

func (s *challengeService) failure(ctx context.Context, c models.Challenge, err error) error {
	s.log.Info(ctx, "challenge verification failed", "origin", c.Origin.String(), "error", err)
	if errors.Is(err, client.ErrUnavailable) || errors.Is(err, client.ErrTimeout) {
		return userError(MsgUnreachable, err)
	}
	return userError(MsgMFAFailed, err)
}
