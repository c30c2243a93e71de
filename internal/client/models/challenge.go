package models

import "time"

// OriginKind tells where control returns after a challenge succeeds.
type OriginKind int

const (
	// OriginKindLogin resumes at the default landing screen.
	OriginKindLogin OriginKind = iota
	// OriginKindResume resumes a pending action at ReturnRoute.
	OriginKindResume
)

// ChallengeOrigin is a tagged variant: Login, or ResumeAction(ReturnRoute).
type ChallengeOrigin struct {
	Kind        OriginKind
	ReturnRoute string
}

func OriginLogin() ChallengeOrigin { return ChallengeOrigin{Kind: OriginKindLogin} }

func OriginResume(route string) ChallengeOrigin {
	return ChallengeOrigin{Kind: OriginKindResume, ReturnRoute: route}
}

func (o ChallengeOrigin) IsResume() bool { return o.Kind == OriginKindResume }

func (o ChallengeOrigin) String() string {
	if o.IsResume() {
		return "resume(" + o.ReturnRoute + ")"
	}
	return "login"
}

// Challenge is a pending second-factor verification. SessionToken is empty
// when the step-up was raised by an already authenticated request; the code
// is then checked against the current bearer token instead.
type Challenge struct {
	SessionToken string
	PendingEmail string
	Origin       ChallengeOrigin
}

// LoginOutcome is the non-error result of a login attempt.
type LoginOutcome struct {
	RequiresMFA     bool
	MFASessionToken string
	PendingEmail    string
	Token           string
	Expiry          time.Time
	User            *User
}

// ChallengeOutcome is the result of a successful challenge. Token is empty
// for step-ups that do not mint a new bearer token; MFAToken is the code to
// present as X-MFA-TOKEN on the resumed action.
type ChallengeOutcome struct {
	Token    string
	User     *User
	MFAToken string
	Origin   ChallengeOrigin
}
