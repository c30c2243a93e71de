// Package session owns "am I logged in, as whom".
//
// Store persists the session and any pending MFA challenge in the local
// metadata table; every multi-key write runs in one transaction so readers
// never see half a session. Manager is the in-process authority built on
// top of it: it restores the session at startup, runs login, challenge
// completion and logout, and publishes immutable State snapshots to
// subscribers.
package session
