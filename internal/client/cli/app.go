package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/config"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/client/session"
	"github.com/dmitrijs2005/docverify/internal/client/verification"
	"github.com/dmitrijs2005/docverify/internal/filex"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

// sessionManager is the part of session.Manager the REPL drives.
type sessionManager interface {
	Init(ctx context.Context)
	State() session.State
	Login(ctx context.Context, email, password string, remember bool) (models.LoginOutcome, error)
	Register(ctx context.Context, req models.RegisterRequest) (models.LoginOutcome, error)
	Logout(ctx context.Context)
	ExpireIfStale(ctx context.Context) bool
	CancelChallenge(ctx context.Context)
	CompleteChallenge(ctx context.Context, code string) (models.ChallengeOutcome, error)
	ClearError()
}

// verifier is the part of verification.Pipeline the REPL drives.
type verifier interface {
	State() models.Attempt
	Subscribe() (<-chan models.Attempt, func())
	SelectFile(doc models.Document) error
	SelectDocumentType(t models.DocumentType) error
	Submit(ctx context.Context) (models.Attempt, error)
	Reset()
	Close()
}

type App struct {
	config   *config.Config
	log      logging.Logger
	session  sessionManager
	pipeline verifier
	mfa      services.MFAService
	account  services.AccountService
	reader   *bufio.Reader
	out      io.Writer
	closeDB  func() error

	mu    sync.Mutex
	route string
}

// NewApp opens the local session database and wires the API client,
// services, session manager and verification pipeline. The App itself is
// the navigator: screen changes become hints printed to the terminal.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, log)
	store := session.NewStore(db)

	app := &App{
		config:  c,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		closeDB: db.Close,
		route:   nav.Login,
	}

	auth := services.NewAuthService(api, store, services.AuthOptions{
		LoginTimeout:   c.LoginTimeout,
		MinLoadingTime: c.MinLoadingTime,
		TokenTTL:       c.TokenTTL,
	}, log)
	challenges := services.NewChallengeService(api, log)

	mgr := session.NewManager(store, auth, challenges, api, app, log, session.Options{
		AuthCheckTimeout:       c.AuthCheckTimeout,
		FallbackLoadingTimeout: c.FallbackLoadingTimeout,
		TokenTTL:               c.TokenTTL,
	})

	app.session = mgr
	app.mfa = services.NewMFAService(api, mgr)
	app.account = services.NewAccountService(api, mgr)
	app.pipeline = verification.NewPipeline(api, mgr, store, app, log,
		verification.Options{ProgressInterval: c.ProgressInterval})

	return app, nil
}

// Run restores the saved session and serves the REPL until the user leaves
// or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.session.Init(ctx)
	st := a.session.State()
	switch {
	case st.IsAuthenticated:
		a.setRoute(nav.Dashboard)
		printlnFn("Signed in as", st.User.Email)
	case st.Challenge != nil:
		a.setRoute(nav.MFAVerification)
		printlnFn("An MFA verification is pending. Enter your code with: mfa <code>")
	}
	printlnFn("Type 'help' for the list of commands.")

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartSessionWatcher(wctx, a.config.SessionCheckInterval)

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
	return nil
}

func (a *App) Close() {
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.log.Warn(context.Background(), "close database", "error", err)
		}
		a.closeDB = nil
	}
}

// Navigate records the current screen and tells the user what it expects.
func (a *App) Navigate(route string, state nav.State) {
	a.setRoute(route)
	switch route {
	case nav.MFAVerification:
		if state.FromVerificationPage {
			printlnFn("This upload requires MFA verification. Enter your code with: mfa <code> (or 'cancel')")
		} else {
			printlnFn("MFA verification required. Enter your code with: mfa <code> (or 'cancel')")
		}
	case nav.Login:
		printlnFn("Please log in.")
	}
}

func (a *App) setRoute(route string) {
	a.mu.Lock()
	a.route = route
	a.mu.Unlock()
}

func (a *App) currentRoute() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

func (a *App) isLoggedIn() bool {
	return a.session.State().IsAuthenticated
}

func (a *App) hasChallenge() bool {
	return a.session.State().Challenge != nil
}

// status is the prompt decoration: who is signed in, or a pending step-up.
func (a *App) status() string {
	st := a.session.State()
	switch {
	case st.Challenge != nil:
		return "mfa pending"
	case st.User != nil:
		return st.User.Email
	}
	return "signed out"
}

// StartSessionWatcher ends the session once its token expires, checking
// every interval until ctx is done. The manager's navigation to the login
// screen is what the user sees.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.session.ExpireIfStale(ctx)
		case <-ctx.Done():
			return
		}
	}
}
