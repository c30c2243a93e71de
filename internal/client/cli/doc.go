// Package cli provides the interactive docverify command-line client.
//
// It wires configuration, the persisted session, the API services and the
// verification pipeline behind a small REPL. Typical flow: restore the saved
// session, start a background expiry watcher, log in (answering the MFA
// prompt when asked) and submit documents for verification.
//
// Key features:
//   - Register / Login / Logout, with step-up MFA challenges
//   - Verify a document from disk and print the verdict
//   - MFA enrollment, backup codes and the account activity log
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartSessionWatcher, and runREPL for details.
package cli
