package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

// ErrNoChallenge is returned by CompleteChallenge when nothing is pending.
var ErrNoChallenge = errors.New("no MFA verification is pending")

const genericMessage = "Something went wrong. Please try again."

// Authenticator exchanges credentials for a session or a challenge. It
// persists full sessions itself.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.LoginOutcome, error)
	Register(ctx context.Context, req models.RegisterRequest) (models.LoginOutcome, error)
}

// ChallengeVerifier resolves a challenge with a code. bearer is the current
// token, used by challenges raised from an authenticated request.
type ChallengeVerifier interface {
	VerifyChallenge(ctx context.Context, bearer string, c models.Challenge, code string) (models.ChallengeOutcome, error)
}

// API is the part of the backend the manager calls directly.
type API interface {
	Me(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
}

// State is an immutable snapshot. IsAuthenticated is always User != nil.
type State struct {
	User            *models.User
	IsAuthenticated bool
	Loading         bool
	Error           string
	Challenge       *models.Challenge
}

// Options are the manager's timings.
type Options struct {
	AuthCheckTimeout       time.Duration
	FallbackLoadingTimeout time.Duration
	TokenTTL               time.Duration
}

// Manager is the single authority for the current session. It is safe for
// concurrent use; network calls run without holding its lock.
type Manager struct {
	store      *Store
	auth       Authenticator
	challenges ChallengeVerifier
	api        API
	nav        nav.Navigator
	log        logging.Logger
	opts       Options
	now        func() time.Time

	mu       sync.Mutex
	state    State
	token    string
	expiry   time.Time
	mfaToken string
	subs     map[chan State]struct{}
}

func NewManager(store *Store, auth Authenticator, challenges ChallengeVerifier, api API,
	navigator nav.Navigator, log logging.Logger, opts Options) *Manager {
	if log == nil {
		log = logging.Nop{}
	}
	return &Manager{
		store:      store,
		auth:       auth,
		challenges: challenges,
		api:        api,
		nav:        navigator,
		log:        log.With("component", "session"),
		opts:       opts,
		now:        time.Now,
		state:      State{Loading: true},
		subs:       make(map[chan State]struct{}),
	}
}

// userMessage returns the user-facing text of err.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return genericMessage
}

// update mutates state under the lock and publishes the result.
func (m *Manager) update(fn func(s *State)) {
	m.mu.Lock()
	fn(&m.state)
	m.state.IsAuthenticated = m.state.User != nil
	snap := m.state
	subs := make([]chan State, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		publish(ch, snap)
	}
}

// publish keeps only the newest snapshot in a subscriber's buffer.
func publish(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel carrying the latest snapshot after each change
// and a function that stops delivery.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) BearerToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) MFAToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mfaToken
}

type profileResult struct {
	user *models.User
	err  error
}

// Init restores a persisted session. With a token, the profile is fetched
// and raced against AuthCheckTimeout; anything but a profile clears the
// store. A fallback timer forces Loading off after FallbackLoadingTimeout
// whatever happens. Init always returns with Loading false.
func (m *Manager) Init(ctx context.Context) {
	m.update(func(s *State) { s.Loading = true })

	fallback := time.AfterFunc(m.opts.FallbackLoadingTimeout, func() {
		if m.State().Loading {
			m.log.Warn(ctx, "session check exceeded fallback timeout")
			m.update(func(s *State) { s.Loading = false })
		}
	})
	defer fallback.Stop()

	user, token, expiry := m.restore(ctx)

	m.mu.Lock()
	m.token, m.expiry = token, expiry
	m.mu.Unlock()
	if token != "" {
		if code, err := m.store.MFAToken(ctx); err == nil {
			m.mu.Lock()
			m.mfaToken = code
			m.mu.Unlock()
		}
	}
	challenge, err := m.store.ReadChallenge(ctx)
	if err != nil {
		m.log.Warn(ctx, "read pending challenge", "error", err)
	}

	m.update(func(s *State) {
		s.User = user
		s.Challenge = challenge
		s.Loading = false
	})
}

func (m *Manager) restore(ctx context.Context) (*models.User, string, time.Time) {
	sess, err := m.store.Read(ctx)
	if err != nil {
		m.log.Error(ctx, "read persisted session", "error", err)
		return nil, "", time.Time{}
	}
	if sess == nil {
		return nil, "", time.Time{}
	}
	if sess.Stale(m.now()) {
		m.log.Info(ctx, "persisted session expired", "expired_at", sess.Expiry)
		m.clearStore(ctx)
		return nil, "", time.Time{}
	}

	results := make(chan profileResult, 1)
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		u, err := m.api.Me(pctx, sess.Token)
		results <- profileResult{user: u, err: err}
	}()

	timer := time.NewTimer(m.opts.AuthCheckTimeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err == nil && r.user != nil {
			m.log.Info(ctx, "session restored", "user_id", r.user.ID)
			return r.user, sess.Token, sess.Expiry
		}
		if errors.Is(r.err, client.ErrUnauthorized) {
			m.log.Info(ctx, "persisted token rejected")
		} else {
			m.log.Warn(ctx, "profile check failed", "error", r.err)
		}
	case <-timer.C:
		m.log.Warn(ctx, "profile check timed out", "timeout", m.opts.AuthCheckTimeout)
	case <-ctx.Done():
	}
	m.clearStore(ctx)
	return nil, "", time.Time{}
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.log.Error(ctx, "clear persisted session", "error", err)
	}
}

// Login runs the credential exchange. A full session lands on the dashboard;
// a step-up persists the challenge and opens the MFA screen. remember is
// kept for the challenge screen, as the web client did.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool) (models.LoginOutcome, error) {
	m.update(func(s *State) { s.Loading = true; s.Error = "" })

	out, err := m.auth.Login(ctx, email, password)
	if err != nil {
		m.update(func(s *State) { s.Loading = false; s.Error = userMessage(err) })
		return out, err
	}

	if out.RequiresMFA {
		ch := models.Challenge{SessionToken: out.MFASessionToken, PendingEmail: email, Origin: models.OriginLogin()}
		if out.PendingEmail != "" {
			ch.PendingEmail = out.PendingEmail
		}
		if err := m.store.SaveChallenge(ctx, ch); err != nil {
			m.log.Error(ctx, "persist challenge", "error", err)
		}
		if remember {
			if err := m.store.SetRememberUser(ctx, true); err != nil {
				m.log.Warn(ctx, "persist remember flag", "error", err)
			}
		}
		m.update(func(s *State) { s.Loading = false; s.Challenge = &ch })
		m.nav.Navigate(nav.MFAVerification, nav.State{Challenge: &ch})
		return out, nil
	}

	m.adopt(out.Token, out.Expiry, out.User)
	m.nav.Navigate(nav.Dashboard, nav.State{})
	return out, nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (models.LoginOutcome, error) {
	m.update(func(s *State) { s.Loading = true; s.Error = "" })

	out, err := m.auth.Register(ctx, req)
	if err != nil {
		m.update(func(s *State) { s.Loading = false; s.Error = userMessage(err) })
		return out, err
	}

	m.adopt(out.Token, out.Expiry, out.User)
	m.nav.Navigate(nav.Dashboard, nav.State{})
	return out, nil
}

// adopt installs an already persisted session in memory.
func (m *Manager) adopt(token string, expiry time.Time, user *models.User) {
	m.mu.Lock()
	m.token, m.expiry = token, expiry
	m.mu.Unlock()
	m.update(func(s *State) {
		s.User = user
		s.Loading = false
		s.Error = ""
		s.Challenge = nil
	})
}

// Logout always ends the local session. The server is told when a token
// exists; its failure is logged and ignored. Calling it twice is harmless.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.log.Warn(ctx, "server logout failed", "error", err)
		}
	}

	m.endSession(ctx)
	m.update(func(s *State) { s.Error = "" })
	m.nav.Navigate(nav.Login, nav.State{})
}

// ExpireSession drops a session the server no longer accepts and sends the
// user to the login screen.
func (m *Manager) ExpireSession(ctx context.Context) {
	m.log.Info(ctx, "session expired")
	m.endSession(ctx)
	m.nav.Navigate(nav.Login, nav.State{})
}

// ExpireIfStale ends the session when its token is past expiry.
func (m *Manager) ExpireIfStale(ctx context.Context) bool {
	m.mu.Lock()
	stale := m.token != "" && !m.now().Before(m.expiry)
	m.mu.Unlock()
	if stale {
		m.ExpireSession(ctx)
	}
	return stale
}

// endSession forgets the session and any step-up bound to it.
func (m *Manager) endSession(ctx context.Context) {
	m.clearStore(ctx)
	bg := context.WithoutCancel(ctx)
	if err := m.store.ClearChallenge(bg); err != nil {
		m.log.Warn(ctx, "clear challenge", "error", err)
	}
	if err := m.store.ClearVerificationIntent(bg); err != nil {
		m.log.Warn(ctx, "clear verification intent", "error", err)
	}
	m.mu.Lock()
	m.token, m.expiry, m.mfaToken = "", time.Time{}, ""
	m.mu.Unlock()
	m.update(func(s *State) { s.User = nil; s.Loading = false; s.Challenge = nil })
}

func (m *Manager) ClearError() {
	m.update(func(s *State) { s.Error = "" })
}

// BeginStepUp opens the MFA screen for a challenge raised mid-operation.
func (m *Manager) BeginStepUp(ctx context.Context, c models.Challenge) error {
	if c.PendingEmail == "" {
		if u := m.State().User; u != nil {
			c.PendingEmail = u.Email
		}
	}
	if err := m.store.SaveChallenge(ctx, c); err != nil {
		return err
	}
	m.update(func(s *State) { s.Challenge = &c; s.Error = "" })
	m.nav.Navigate(nav.MFAVerification, nav.State{Challenge: &c, FromVerificationPage: c.Origin.IsResume()})
	return nil
}

// CancelChallenge discards the pending challenge and any verification intent.
func (m *Manager) CancelChallenge(ctx context.Context) {
	ch := m.State().Challenge
	if err := m.store.ClearChallenge(ctx); err != nil {
		m.log.Warn(ctx, "clear challenge", "error", err)
	}
	if err := m.store.ClearVerificationIntent(ctx); err != nil {
		m.log.Warn(ctx, "clear verification intent", "error", err)
	}
	m.update(func(s *State) { s.Challenge = nil; s.Error = "" })

	route := nav.Login
	if ch != nil && ch.Origin.IsResume() && m.State().IsAuthenticated {
		route = ch.Origin.ReturnRoute
	}
	m.nav.Navigate(route, nav.State{})
}

// CompleteChallenge verifies code against the pending challenge. On success
// the session is saved, the code is kept as the MFA token, the challenge is
// consumed, and the user resumes where the challenge came from. On failure
// the challenge stays for another try.
func (m *Manager) CompleteChallenge(ctx context.Context, code string) (models.ChallengeOutcome, error) {
	ch := m.State().Challenge
	if ch == nil {
		stored, err := m.store.ReadChallenge(ctx)
		if err != nil {
			m.log.Error(ctx, "read challenge", "error", err)
		}
		ch = stored
	}
	if ch == nil {
		m.update(func(s *State) { s.Error = "No MFA verification is pending. Please log in again." })
		return models.ChallengeOutcome{}, ErrNoChallenge
	}

	m.update(func(s *State) { s.Loading = true; s.Error = "" })

	out, err := m.challenges.VerifyChallenge(ctx, m.BearerToken(), *ch, code)
	if err != nil {
		m.update(func(s *State) { s.Loading = false; s.Error = userMessage(err) })
		return out, err
	}

	if out.Token != "" {
		user := out.User
		if user == nil {
			user, err = m.api.Me(ctx, out.Token)
			if err != nil {
				m.log.Warn(ctx, "profile after challenge", "error", err)
				m.update(func(s *State) { s.Loading = false; s.Error = "MFA verification failed. Please try again." })
				return out, err
			}
		}
		expiry := client.TokenExpiry(out.Token, m.now(), m.opts.TokenTTL)
		if err := m.store.Save(ctx, out.Token, expiry, user); err != nil {
			m.update(func(s *State) { s.Loading = false; s.Error = genericMessage })
			return out, err
		}
		out.User = user
		m.adopt(out.Token, expiry, user)
	}

	if out.MFAToken != "" {
		if err := m.store.SetMFAToken(ctx, out.MFAToken); err != nil {
			m.log.Warn(ctx, "persist mfa token", "error", err)
		}
		m.mu.Lock()
		m.mfaToken = out.MFAToken
		m.mu.Unlock()
	}

	if err := m.store.ClearChallenge(ctx); err != nil {
		m.log.Warn(ctx, "clear challenge", "error", err)
	}
	m.update(func(s *State) { s.Challenge = nil; s.Loading = false })

	route := nav.Dashboard
	if r, ok, err := m.store.ReadVerificationIntent(ctx); err == nil && ok {
		route = r
		if err := m.store.ClearVerificationIntent(ctx); err != nil {
			m.log.Warn(ctx, "clear verification intent", "error", err)
		}
	} else if ch.Origin.IsResume() {
		route = ch.Origin.ReturnRoute
	}
	m.nav.Navigate(route, nav.State{})
	return out, nil
}
