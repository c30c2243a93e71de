package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	hasChallenge() bool
	Register(ctx context.Context) error
	Login(ctx context.Context, args []string) error
	MFA(ctx context.Context, args []string) error
	Cancel(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Types(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Retry(ctx context.Context) error
	Status(ctx context.Context) error
	Reset(ctx context.Context) error
	MFAStatus(ctx context.Context) error
	MFASetup(ctx context.Context, args []string) error
	MFAEnable(ctx context.Context, args []string) error
	MFADisable(ctx context.Context) error
	BackupCodes(ctx context.Context) error
	Activity(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: register, login [--remember], exit"
	helpChallenge = "Available commands: mfa <code>, cancel, logout, exit"
	helpSignedIn  = "Available commands: whoami, types, verify [path] [type], retry, status, reset, " +
		"mfa-status, mfa-setup [qr.png], mfa-enable [code], mfa-disable, backup-codes, " +
		"activity, delete-account, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the docverify CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// Unknown commands are reported back to the user. The loop exits on scanner
// EOF, when ctx is done, or when the user types "exit" or "quit".
//
// Handler errors are printed as their user-facing message and never stop
// the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dv (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			switch {
			case a.hasChallenge():
				printlnFn(helpChallenge)
			case a.isLoggedIn():
				printlnFn(helpSignedIn)
			default:
				printlnFn(helpSignedOut)
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx, args)

		case "mfa":
			err = a.MFA(ctx, args)

		case "cancel":
			err = a.Cancel(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "types":
			err = a.Types(ctx)

		case "v", "verify":
			err = a.Verify(ctx, args)

		case "retry", "submit":
			err = a.Retry(ctx)

		case "status":
			err = a.Status(ctx)

		case "reset":
			err = a.Reset(ctx)

		case "mfa-status":
			err = a.MFAStatus(ctx)

		case "mfa-setup":
			err = a.MFASetup(ctx, args)

		case "mfa-enable":
			err = a.MFAEnable(ctx, args)

		case "mfa-disable":
			err = a.MFADisable(ctx)

		case "backup-codes":
			err = a.BackupCodes(ctx)

		case "activity":
			err = a.Activity(ctx)

		case "delete-account":
			err = a.DeleteAccount(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			report(err)
		}
	}
}

// errAborted is returned when the user backs out of a prompt.
var errAborted = errors.New("aborted")

func report(err error) {
	if errors.Is(err, errAborted) {
		printlnFn("Cancelled.")
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	printlnFn("Error:", services.Message(err))
}
