// Package nav names the client's screens and abstracts moving between them.
package nav

import (
	"sync"

	"github.com/dmitrijs2005/docverify/internal/client/models"
)

const (
	Login           = "/login"
	Register        = "/register"
	Dashboard       = "/dashboard"
	Verify          = "/verify"
	MFAVerification = "/mfa-verification"
)

// State travels with a navigation. Challenge is set when heading to the
// MFA screen.
type State struct {
	Challenge            *models.Challenge
	FromVerificationPage bool
}

// Navigator switches the UI to route.
type Navigator interface {
	Navigate(route string, state State)
}

// Func adapts a function to Navigator.
type Func func(route string, state State)

func (f Func) Navigate(route string, state State) { f(route, state) }

// Visit is one recorded navigation.
type Visit struct {
	Route string
	State State
}

// Recorder remembers every navigation. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	visits []Visit
}

func (r *Recorder) Navigate(route string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, Visit{Route: route, State: state})
}

func (r *Recorder) Visits() []Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Visit(nil), r.visits...)
}

// Last returns the most recent visit, or a zero Visit.
func (r *Recorder) Last() Visit {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.visits) == 0 {
		return Visit{}
	}
	return r.visits[len(r.visits)-1]
}
