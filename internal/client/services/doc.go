// Package services holds the client's application services: credential
// login and registration, step-up challenge verification, MFA enrollment,
// and account management. Every error they return carries a user-facing
// message (see Message); raw transport errors stay wrapped underneath.
package services
