// Package sandbox runs an in-memory stand-in for the verification backend:
// accounts, TOTP step-up and deterministic document verdicts over the same
// REST API the client talks to.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/sandbox/config"
	"github.com/dmitrijs2005/docverify/internal/sandbox/httpapi"
	"github.com/dmitrijs2005/docverify/internal/sandbox/users"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	server      *HTTPServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	gin.SetMode(gin.ReleaseMode)

	us := users.NewService(users.NewMemoryRepository(), c)
	if c.DemoEmail != "" {
		if _, err := us.Seed(ctx, c.DemoEmail, c.DemoPassword, c.DemoMFASecret); err != nil {
			return nil, fmt.Errorf("seed demo user: %w", err)
		}
		logger.Info(ctx, "demo user seeded", "email", c.DemoEmail, "mfa", c.DemoMFASecret != "")
	}

	router := httpapi.NewRouter(us, c.MaxDocumentSize, logger.With("module", "api"))
	server := NewHTTPServer(c.EndpointAddr, router, logger)

	return &App{config: c, logger: logger, userService: us, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			runErr = err
			cancelFunc()
		}
	}()

	wg.Wait()
	return runErr
}
