// Package models defines the client-side data model: the signed-in user and
// session, pending MFA challenges, and verification attempts with their
// results.
package models
