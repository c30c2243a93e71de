package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/cryptox"
	"github.com/dmitrijs2005/docverify/internal/sandbox/auth"
	"github.com/dmitrijs2005/docverify/internal/sandbox/config"
	"github.com/dmitrijs2005/docverify/internal/sandbox/totp"
)

const (
	issuer          = "DocVerify"
	backupCodeCount = 10
	maxActivity     = 50
)

// Client-facing messages.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgAccountLocked      = "Account is locked. Please try again later."
	MsgTooManyAttempts    = "Too many failed attempts. Account locked for 15 minutes."
	MsgEmailTaken         = "Email is already registered"
	MsgInvalidEmail       = "Invalid email format"
	MsgUserNotFound       = "User not found"
	MsgInvalidMFASession  = "Invalid MFA session"
	MsgMFASessionExpired  = "MFA session expired"
	MsgMFASessionUsed     = "MFA session already used"
	MsgInvalidMFAToken    = "Invalid MFA token"
	MsgMFARequired        = "MFA verification required"
	MsgTokenRequired      = "Token is required"
	MsgMFANotSetUp        = "MFA not set up"
	MsgMFANotEnabled      = "MFA is not enabled for this account"
	MsgInvalidCode        = "Invalid verification code"
	MsgPasswordRequired   = "Password is required"
	MsgInvalidPassword    = "Invalid password"
	MsgIncorrectPassword  = "Incorrect password"
	MsgMFARoleLocked      = "MFA cannot be disabled for your account role"
	MsgDeletePassword     = "Password required for account deletion"
	MsgDisablePassword    = "Password is required to disable MFA"
	MsgInvalidToken       = "Invalid token"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// LoginResult is either a full session (Token, User) or a step-up ticket
// (MFASessionToken).
type LoginResult struct {
	Token           string
	User            *User
	MFASessionToken string
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type Service struct {
	repo          Repository
	jwtSecret     []byte
	sealKey       []byte
	tokenTTL      time.Duration
	mfaSessionTTL time.Duration
	maxAttempts   int
	lockout       time.Duration
	cost          int
	now           func() time.Time

	mu          sync.Mutex
	mfaSessions map[string]*mfaSession
	revoked     map[string]time.Time
	activity    map[string][]models.Activity
}

func NewService(repo Repository, cfg *config.Config) *Service {
	return &Service{
		repo:          repo,
		jwtSecret:     []byte(cfg.SecretKey),
		sealKey:       cryptox.DeriveKey([]byte(cfg.SecretKey), []byte(issuer+"-mfa")),
		tokenTTL:      cfg.TokenTTL,
		mfaSessionTTL: cfg.MFASessionTTL,
		maxAttempts:   cfg.MaxLoginAttempts,
		lockout:       cfg.LockoutDuration,
		cost:          bcrypt.DefaultCost,
		now:           time.Now,
		mfaSessions:   make(map[string]*mfaSession),
		revoked:       make(map[string]time.Time),
		activity:      make(map[string][]models.Activity),
	}
}

// ValidatePassword enforces the password policy: at least 8 characters
// with upper and lower case letters, a digit and a special character.
func ValidatePassword(p string) error {
	var msg string
	switch {
	case len(p) < 8:
		msg = "Password must be at least 8 characters long"
	case !strings.ContainsFunc(p, isUpper):
		msg = "Password must contain at least one uppercase letter"
	case !strings.ContainsFunc(p, isLower):
		msg = "Password must contain at least one lowercase letter"
	case !strings.ContainsFunc(p, isDigit):
		msg = "Password must contain at least one number"
	case !specialPattern.MatchString(p):
		msg = "Password must contain at least one special character"
	default:
		return nil
	}
	return common.Errorf(common.ErrorValidation, msg)
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (s *Service) hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), s.cost)
}

func checkPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) == nil
}

func (s *Service) generateAccessToken(user *User) (string, error) {
	return auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
}

// Register creates an account with the user role and returns it with a
// bearer token.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*User, string, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || !emailPattern.MatchString(email) {
		return nil, "", common.Errorf(common.ErrorValidation, MsgInvalidEmail)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, "", err
	}

	u, err := s.create(ctx, email, in.Password, in.FirstName, in.LastName, RoleUser)
	if err != nil {
		return nil, "", err
	}

	token, err := s.generateAccessToken(u)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	s.record(u.ID, "register", meta)
	return u, token, nil
}

func (s *Service) create(ctx context.Context, email, password, first, last, role string) (*User, error) {
	hash, err := s.hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, &User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Errorf(common.ErrorValidation, MsgEmailTaken)
		}
		return nil, common.ErrorInternal
	}
	return u, nil
}

// Seed creates a demo account, optionally with MFA already enabled using
// the given base32 secret.
func (s *Service) Seed(ctx context.Context, email, password, mfaSecret string) (*User, error) {
	u, err := s.create(ctx, email, password, "Demo", "User", RoleUser)
	if err != nil {
		return nil, err
	}
	if mfaSecret == "" {
		return u, nil
	}

	sealed, err := cryptox.Seal(s.sealKey, []byte(mfaSecret))
	if err != nil {
		return nil, err
	}
	u.MFASecret = sealed
	u.MFAEnabled = true
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials with lockout. A user with MFA gets a step-up
// ticket instead of a token.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByLogin(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorUnauthorized, MsgInvalidCredentials)
		}
		return nil, common.ErrorInternal
	}

	now := s.now()
	if now.Before(u.LockedUntil) {
		return nil, common.Errorf(common.ErrAccountLocked, MsgAccountLocked)
	}

	if !checkPassword(u, password) {
		u.FailedAttempts++
		locked := s.maxAttempts > 0 && u.FailedAttempts >= s.maxAttempts
		if locked {
			u.FailedAttempts = 0
			u.LockedUntil = now.Add(s.lockout)
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, common.ErrorInternal
		}
		s.recordLocked(u.ID, "login_failed", meta)
		if locked {
			return nil, common.Errorf(common.ErrAccountLocked, MsgTooManyAttempts)
		}
		return nil, common.Errorf(common.ErrorUnauthorized, MsgInvalidCredentials)
	}

	if u.FailedAttempts != 0 || !u.LockedUntil.IsZero() {
		u.FailedAttempts = 0
		u.LockedUntil = time.Time{}
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, common.ErrorInternal
		}
	}

	if u.MFAEnabled {
		ticket := uuid.NewString()
		s.mfaSessions[ticket] = &mfaSession{userID: u.ID, expiresAt: now.Add(s.mfaSessionTTL)}
		return &LoginResult{User: u, MFASessionToken: ticket}, nil
	}

	token, err := s.generateAccessToken(u)
	if err != nil {
		return nil, common.ErrorInternal
	}
	s.recordLocked(u.ID, "login", meta)
	return &LoginResult{User: u, Token: token}, nil
}

// VerifyLoginMFA redeems a step-up ticket with a TOTP code.
func (s *Service) VerifyLoginMFA(ctx context.Context, ticket, code string, meta RequestMeta) (*User, string, error) {
	if strings.TrimSpace(code) == "" {
		return nil, "", common.Errorf(common.ErrorValidation, MsgTokenRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.mfaSessions[ticket]
	switch {
	case !ok:
		return nil, "", common.Errorf(common.ErrorValidation, MsgInvalidMFASession)
	case sess.used:
		return nil, "", common.Errorf(common.ErrorValidation, MsgMFASessionUsed)
	case !s.now().Before(sess.expiresAt):
		delete(s.mfaSessions, ticket)
		return nil, "", common.Errorf(common.ErrorValidation, MsgMFASessionExpired)
	}

	u, err := s.repo.GetUserByID(ctx, sess.userID)
	if err != nil {
		return nil, "", common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if !s.validateCode(u.MFASecret, code) {
		return nil, "", common.Errorf(common.ErrorValidation, MsgInvalidMFAToken)
	}
	sess.used = true

	token, err := s.generateAccessToken(u)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	s.recordLocked(u.ID, "mfa_verify", meta)
	return u, token, nil
}

func (s *Service) validateCode(sealed, code string) bool {
	if sealed == "" {
		return false
	}
	secret, err := cryptox.Open(s.sealKey, sealed)
	if err != nil {
		return false
	}
	return totp.Validate(strings.TrimSpace(code), string(secret), s.now())
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*User, *auth.Claims, error) {
	claims, err := auth.ParseToken(bearer, s.jwtSecret)
	if err != nil {
		return nil, nil, common.Errorf(err, MsgInvalidToken)
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, nil, common.Errorf(common.ErrInvalidToken, MsgInvalidToken)
	}

	u, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, common.Errorf(common.ErrorUnauthorized, MsgUserNotFound)
	}
	return u, claims, nil
}

// Logout revokes the token identified by claims until it would have
// expired anyway.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims, meta RequestMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, id)
		}
	}
	exp := now.Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	s.revoked[claims.ID] = exp
	s.recordLocked(claims.UserID, "logout", meta)
}

// CheckMFA guards sensitive endpoints: users needing a second factor must
// present a current TOTP code.
func (s *Service) CheckMFA(ctx context.Context, u *User, code string) error {
	if !u.RequiresMFA() {
		return nil
	}
	if code == "" {
		return common.Errorf(common.ErrMFARequired, MsgMFARequired)
	}
	if !s.validateCode(u.MFASecret, code) {
		return common.Errorf(common.ErrMFARequired, MsgInvalidMFAToken)
	}
	return nil
}

func (s *Service) MFAStatus(ctx context.Context, userID string) (*models.MFAStatus, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	return &models.MFAStatus{
		MFAEnabled:  u.MFAEnabled,
		MFAVerified: u.MFAEnabled,
		RequiresMFA: u.Role == RoleAdmin,
	}, nil
}

// SetupMFA generates a pending secret. It becomes active on EnableMFA.
func (s *Service) SetupMFA(ctx context.Context, userID string) (*models.MFASetup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}

	enr, err := totp.Generate(issuer, u.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	qr, err := enr.QRCodeDataURL()
	if err != nil {
		return nil, common.ErrorInternal
	}
	sealed, err := cryptox.Seal(s.sealKey, []byte(enr.Secret))
	if err != nil {
		return nil, common.ErrorInternal
	}

	u.PendingMFASecret = sealed
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, common.ErrorInternal
	}
	return &models.MFASetup{Secret: enr.Secret, QRCode: qr}, nil
}

// EnableMFA confirms the pending secret with a code.
func (s *Service) EnableMFA(ctx context.Context, userID, code string, withBackupCodes bool) ([]string, error) {
	if strings.TrimSpace(code) == "" {
		return nil, common.Errorf(common.ErrorValidation, MsgTokenRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if u.PendingMFASecret == "" {
		return nil, common.Errorf(common.ErrorValidation, MsgMFANotSetUp)
	}
	if !s.validateCode(u.PendingMFASecret, code) {
		return nil, common.Errorf(common.ErrorValidation, MsgInvalidCode)
	}

	u.MFASecret = u.PendingMFASecret
	u.PendingMFASecret = ""
	u.MFAEnabled = true
	var codes []string
	if withBackupCodes {
		if codes, err = newBackupCodes(); err != nil {
			return nil, common.ErrorInternal
		}
		u.BackupCodes = codes
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, common.ErrorInternal
	}
	s.recordLocked(u.ID, "mfa_enabled", RequestMeta{})
	return codes, nil
}

// VerifyMFAToken checks a code for an already-authenticated user.
func (s *Service) VerifyMFAToken(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return common.Errorf(common.ErrorValidation, MsgTokenRequired)
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if !u.MFAEnabled {
		return common.Errorf(common.ErrorValidation, MsgMFANotEnabled)
	}
	if !s.validateCode(u.MFASecret, code) {
		return common.Errorf(common.ErrorValidation, MsgInvalidCode)
	}
	return nil
}

func (s *Service) DisableMFA(ctx context.Context, userID, password string) error {
	if password == "" {
		return common.Errorf(common.ErrorValidation, MsgDisablePassword)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if !checkPassword(u, password) {
		return common.Errorf(common.ErrorUnauthorized, MsgInvalidPassword)
	}
	if u.Role == RoleAdmin {
		return common.Errorf(common.ErrorForbidden, MsgMFARoleLocked)
	}

	u.MFAEnabled = false
	u.MFASecret = ""
	u.PendingMFASecret = ""
	u.BackupCodes = nil
	if err := s.repo.Update(ctx, u); err != nil {
		return common.ErrorInternal
	}
	s.recordLocked(u.ID, "mfa_disabled", RequestMeta{})
	return nil
}

// GenerateBackupCodes replaces the user's backup codes.
func (s *Service) GenerateBackupCodes(ctx context.Context, userID, password string) ([]string, error) {
	if password == "" {
		return nil, common.Errorf(common.ErrorValidation, MsgPasswordRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if !checkPassword(u, password) {
		return nil, common.Errorf(common.ErrorUnauthorized, MsgInvalidPassword)
	}
	if !u.MFAEnabled {
		return nil, common.Errorf(common.ErrorValidation, MsgMFANotEnabled)
	}

	codes, err := newBackupCodes()
	if err != nil {
		return nil, common.ErrorInternal
	}
	u.BackupCodes = codes
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, common.ErrorInternal
	}
	return codes, nil
}

func newBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		c, err := common.MakeRandURLString(8)
		if err != nil {
			return nil, err
		}
		codes[i] = c
	}
	return codes, nil
}

// DeleteAccount removes the user after a password check.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	if password == "" {
		return common.Errorf(common.ErrorValidation, MsgDeletePassword)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return common.Errorf(common.ErrorNotFound, MsgUserNotFound)
	}
	if !checkPassword(u, password) {
		return common.Errorf(common.ErrorUnauthorized, MsgIncorrectPassword)
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return common.ErrorInternal
	}
	delete(s.activity, userID)
	for k, sess := range s.mfaSessions {
		if sess.userID == userID {
			delete(s.mfaSessions, k)
		}
	}
	return nil
}

// Activity returns the user's recent events, newest first.
func (s *Service) Activity(ctx context.Context, userID string) []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Activity{}, s.activity[userID]...)
}

func (s *Service) record(userID, action string, meta RequestMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(userID, action, meta)
}

func (s *Service) recordLocked(userID, action string, meta RequestMeta) {
	entry := models.Activity{
		Date:     s.now().UTC().Format(time.RFC3339),
		Action:   action,
		IP:       meta.IP,
		Location: "Unknown",
		Device:   meta.UserAgent,
	}
	list := append([]models.Activity{entry}, s.activity[userID]...)
	if len(list) > maxActivity {
		list = list[:maxActivity]
	}
	s.activity[userID] = list
}
