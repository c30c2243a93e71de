package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/session"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

// AuthService exchanges credentials for a session.
//
// Contract:
//   - Login: validate, call the backend under LoginTimeout, persist a full
//     session, or report a step-up without touching the store. Success and
//     failure both return no earlier than MinLoadingTime after the call.
//   - Register: create an account and persist the resulting session.
type AuthService interface {
	Login(ctx context.Context, email, password string) (models.LoginOutcome, error)
	Register(ctx context.Context, req models.RegisterRequest) (models.LoginOutcome, error)
}

// AuthOptions are the timings of the credential flow.
type AuthOptions struct {
	LoginTimeout   time.Duration
	MinLoadingTime time.Duration
	TokenTTL       time.Duration
}

type authService struct {
	api   client.Client
	store *session.Store
	opts  AuthOptions
	log   logging.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewAuthService(api client.Client, store *session.Store, opts AuthOptions, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop{}
	}
	return &authService{
		api:   api,
		store: store,
		opts:  opts,
		log:   log.With("component", "auth"),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (a *authService) Login(ctx context.Context, email, password string) (models.LoginOutcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.LoginOutcome{}, &ValidationError{Msg: MsgEmailRequired}
	}
	if password == "" {
		return models.LoginOutcome{}, &ValidationError{Msg: MsgPasswordRequired}
	}

	start := a.now()
	out, err := a.login(ctx, email, password)
	a.sleep(ctx, a.opts.MinLoadingTime-a.now().Sub(start))

	if err != nil {
		a.log.Info(ctx, "login failed", "email", email, "error", err)
	}
	return out, err
}

// withTimeout bounds ctx by LoginTimeout when one is configured.
func (a *authService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.LoginTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.opts.LoginTimeout)
}

func (a *authService) login(ctx context.Context, email, password string) (models.LoginOutcome, error) {
	lctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.api.Login(lctx, email, password)
	if err != nil {
		return models.LoginOutcome{}, loginError(err)
	}

	if resp.Token != "" {
		return a.adopt(ctx, resp, MsgLoginFailed)
	}
	if resp.StepUp() {
		if resp.MFASessionToken == "" {
			return models.LoginOutcome{}, userError(MsgMFANoSession, client.ErrInvalidResponse)
		}
		pending := resp.Email
		if pending == "" {
			pending = email
		}
		a.log.Info(ctx, "login requires mfa", "email", email)
		return models.LoginOutcome{
			RequiresMFA:     true,
			MFASessionToken: resp.MFASessionToken,
			PendingEmail:    pending,
		}, nil
	}
	return models.LoginOutcome{}, userError(MsgLoginFailed, client.ErrInvalidResponse)
}

// adopt persists a token-bearing response. A response without a user gets
// the profile fetched.
func (a *authService) adopt(ctx context.Context, resp *client.AuthResponse, failMsg string) (models.LoginOutcome, error) {
	user := resp.User
	if user == nil {
		u, err := a.api.Me(ctx, resp.Token)
		if err != nil {
			return models.LoginOutcome{}, userError(failMsg, err)
		}
		user = u
	}

	expiry := client.TokenExpiry(resp.Token, a.now(), a.opts.TokenTTL)
	if err := a.store.Save(ctx, resp.Token, expiry, user); err != nil {
		return models.LoginOutcome{}, userError(MsgSessionSaveFailed, err)
	}
	a.log.Info(ctx, "signed in", "user_id", user.ID)
	return models.LoginOutcome{Token: resp.Token, Expiry: expiry, User: user}, nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, client.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return userError(MsgLoginTimeout, err)
	case errors.Is(err, client.ErrUnavailable):
		return userError(MsgUnreachable, err)
	}

	apiErr, ok := client.AsAPIError(err)
	if !ok {
		return userError(MsgLoginFailed, err)
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return userError(MsgInvalidCredentials, err)
	case apiErr.StatusCode == http.StatusForbidden:
		return userError(orDefault(apiErr.Message, MsgAccessDenied), err)
	default:
		return userError(orDefault(apiErr.Message, MsgLoginFailed), err)
	}
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (models.LoginOutcome, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" {
		return models.LoginOutcome{}, &ValidationError{Msg: MsgEmailRequired}
	}
	if req.Password == "" {
		return models.LoginOutcome{}, &ValidationError{Msg: MsgPasswordRequired}
	}

	lctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.api.Register(lctx, req)
	if err != nil {
		return models.LoginOutcome{}, registerError(err)
	}
	if resp.Token == "" {
		return models.LoginOutcome{}, userError(MsgRegisterFailed, client.ErrInvalidResponse)
	}
	return a.adopt(ctx, resp, MsgRegisterFailed)
}

func registerError(err error) error {
	if errors.Is(err, client.ErrTimeout) || errors.Is(err, client.ErrUnavailable) {
		return userError(MsgUnreachable, err)
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		return userError(orDefault(apiErr.Message, MsgRegisterFailed), err)
	}
	return userError(MsgRegisterFailed, err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
