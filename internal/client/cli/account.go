package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/filex"
)

// writeFile is a test seam for saving the enrollment QR code.
var writeFile = func(path string, data []byte) error {
	if err := filex.EnsureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (a *App) MFAStatus(ctx context.Context) error {
	st, err := a.mfa.Status(ctx)
	if err != nil {
		return err
	}
	printlnFn("MFA:         ", onOff(st.MFAEnabled))
	printlnFn("Required:    ", st.RequiresMFA)
	printlnFn("Verified now:", st.MFAVerified)
	return nil
}

// MFASetup starts enrollment and shows the secret. With a path argument the
// QR code is also saved there as a PNG.
func (a *App) MFASetup(ctx context.Context, args []string) error {
	setup, err := a.mfa.Setup(ctx)
	if err != nil {
		return err
	}

	printlnFn("Add this secret to your authenticator app:")
	printlnFn("  ", setup.Secret)

	if path := arg(args, 0); path != "" && setup.QRCode != "" {
		png, err := decodeDataURL(setup.QRCode)
		if err != nil {
			return &services.UserError{Msg: "The server sent an unreadable QR code", Err: err}
		}
		if err := writeFile(path, png); err != nil {
			return &services.UserError{Msg: "Unable to save the QR code to " + path, Err: err}
		}
		printlnFn("QR code saved to", path)
	}

	printlnFn("Then confirm with: mfa-enable <code>")
	return nil
}

// MFAEnable confirms enrollment with a code and prints the one-time backup
// codes.
func (a *App) MFAEnable(ctx context.Context, args []string) error {
	code, err := a.argOrPrompt(args, 0, "Enter the 6-digit code from your authenticator app")
	if err != nil {
		return err
	}
	codes, err := a.mfa.Enable(ctx, code)
	if err != nil {
		return err
	}
	printlnFn("MFA enabled.")
	printCodes(codes)
	return nil
}

func (a *App) MFADisable(ctx context.Context) error {
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	if err := a.mfa.Disable(ctx, string(password)); err != nil {
		return err
	}
	printlnFn("MFA disabled.")
	return nil
}

// BackupCodes replaces the backup codes after a password check.
func (a *App) BackupCodes(ctx context.Context) error {
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	codes, err := a.mfa.GenerateBackupCodes(ctx, string(password))
	if err != nil {
		return err
	}
	printCodes(codes)
	return nil
}

func printCodes(codes []string) {
	if len(codes) == 0 {
		return
	}
	printlnFn("Backup codes (each works once, store them somewhere safe):")
	for _, c := range codes {
		printlnFn("  ", c)
	}
}

func (a *App) Activity(ctx context.Context) error {
	entries, err := a.account.Activity(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printlnFn("No activity recorded.")
		return nil
	}
	for _, e := range entries {
		printlnFn(fmt.Sprintf("%-25s %-28s %-15s %s", e.Date, e.Action, e.IP, e.Device))
	}
	return nil
}

// DeleteAccount removes the account after a password check and an explicit
// confirmation. The local session ends with it.
func (a *App) DeleteAccount(ctx context.Context) error {
	confirm, err := getSimpleText(a.reader, "This permanently deletes your account. Type DELETE to confirm", a.out)
	if err != nil {
		return err
	}
	if confirm != "DELETE" {
		return errAborted
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	if err := a.account.DeleteAccount(ctx, string(password)); err != nil {
		return err
	}
	a.pipeline.Reset()
	printlnFn("Account deleted.")
	return nil
}

func decodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ";base64,")
	if !ok {
		return nil, fmt.Errorf("not a base64 data url")
	}
	return base64.StdEncoding.DecodeString(payload)
}
