// Package client contains the client-side building blocks for talking to the
// document verification backend.
//
// # Overview
//
// The package provides:
//  1. The API contract (see the Client interface): authentication, profile,
//     MFA enrollment and step-up, account activity and deletion, and the
//     document upload endpoint.
//  2. A JSON-over-HTTP implementation (see HTTPClient) that attaches the
//     bearer and X-MFA-TOKEN headers and turns error bodies into *APIError.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport conditions are sentinel errors matched with errors.Is:
// ErrUnavailable, ErrTimeout, ErrInvalidResponse. Server-declared failures
// are *APIError values which also match ErrUnauthorized (401), ErrForbidden
// (403), ErrMFARequired (403 with requires_mfa) and ErrTooLarge (413).
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. Every call takes a context and
// honors its deadline; tokens are passed per call and never cached here.
package client
