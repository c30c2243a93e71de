package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/client/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// sessionErr prefers the message the session manager settled on, which is
// what the web client showed under the form.
func (a *App) sessionErr(err error) error {
	if msg := a.session.State().Error; msg != "" {
		a.session.ClearError()
		return &services.UserError{Msg: msg, Err: err}
	}
	return err
}

// Register prompts for the account details and signs the new account in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	first, err := getSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	out, err := a.session.Register(ctx, models.RegisterRequest{
		Email:     email,
		Password:  string(password),
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		return a.sessionErr(err)
	}

	printlnFn("Account created.")
	welcome(out.User)
	return nil
}

// Login prompts for credentials. "--remember" is kept with the pending
// challenge when the server asks for a second factor, in which case the
// navigator has already told the user how to answer it.
func (a *App) Login(ctx context.Context, args []string) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	remember := slices.Contains(args, "--remember")

	out, err := a.session.Login(ctx, email, string(password), remember)
	if err != nil {
		return a.sessionErr(err)
	}
	if out.RequiresMFA {
		return nil
	}

	welcome(out.User)
	return nil
}

// MFA answers the pending challenge. A challenge that interrupted an upload
// returns the user to the verify screen with the document still selected;
// 'retry' submits it.
func (a *App) MFA(ctx context.Context, args []string) error {
	code, err := a.argOrPrompt(args, 0, "Enter the 6-digit code from your authenticator app")
	if err != nil {
		return err
	}

	out, err := a.session.CompleteChallenge(ctx, code)
	if err != nil {
		return a.sessionErr(err)
	}

	printlnFn("MFA verification successful.")
	if out.Origin.IsResume() && a.currentRoute() == nav.Verify {
		if f := a.pipeline.State().File; f != nil {
			printlnFn(fmt.Sprintf("Back on the verify screen with %s selected. Type 'retry' to submit it.", f.Name))
		}
		return nil
	}
	if out.User != nil {
		welcome(out.User)
	}
	return nil
}

// Cancel abandons the pending challenge.
func (a *App) Cancel(ctx context.Context) error {
	if !a.hasChallenge() {
		printlnFn("Nothing to cancel.")
		return nil
	}
	a.session.CancelChallenge(ctx)
	printlnFn("MFA verification cancelled.")
	return nil
}

// Logout ends the session locally and on the server. The pending upload,
// if any, is discarded with it.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	a.pipeline.Reset()
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u := a.session.State().User
	if u == nil {
		printlnFn("Not signed in.")
		return nil
	}
	printlnFn("Name: ", u.DisplayName())
	printlnFn("Email:", u.Email)
	if u.Role != "" {
		printlnFn("Role: ", u.Role)
	}
	printlnFn("MFA:  ", onOff(u.MFAEnabled))
	return nil
}

func welcome(u *models.User) {
	if u == nil {
		return
	}
	printlnFn("Welcome,", u.DisplayName())
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
