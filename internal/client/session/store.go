package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/docverify/internal/dbx"
)

// Storage keys. They match the keys the web client keeps in local storage.
const (
	KeyToken                  = "token"
	KeyTokenExpiry            = "token_expiry"
	KeyUserID                 = "user_id"
	KeyUser                   = "user"
	KeyRememberUser           = "remember_user"
	KeyMFASessionToken        = "mfa_session_token"
	KeyMFAPendingEmail        = "mfa_pending_email"
	KeyMFAToken               = "mfa_token"
	KeyVerificationPending    = "verification_pending"
	KeyVerificationReturnPath = "verification_return_path"
)

var sessionKeys = []string{KeyToken, KeyTokenExpiry, KeyUserID, KeyUser, KeyRememberUser, KeyMFAToken}

// DB is what Store needs from *sql.DB.
type DB interface {
	dbx.DBTX
	dbx.Beginner
}

// Store is the durable session store. It holds no state of its own; last
// writer wins.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) tx(ctx context.Context, fn func(r metadata.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(metadata.NewSQLiteRepository(tx))
	})
}

func (s *Store) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// Save writes the token, its expiry and the user in one transaction.
func (s *Store) Save(ctx context.Context, token string, expiry time.Time, user *models.User) error {
	var userJSON []byte
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return err
		}
		userJSON = b
	}

	return s.tx(ctx, func(r metadata.Repository) error {
		if err := r.Set(ctx, KeyToken, []byte(token)); err != nil {
			return err
		}
		if err := r.Set(ctx, KeyTokenExpiry, []byte(expiry.UTC().Format(time.RFC3339))); err != nil {
			return err
		}
		if user == nil {
			return r.Delete(ctx, KeyUserID, KeyUser)
		}
		if err := r.Set(ctx, KeyUserID, []byte(user.ID)); err != nil {
			return err
		}
		return r.Set(ctx, KeyUser, userJSON)
	})
}

// Clear removes the session keys. Absent keys are fine.
func (s *Store) Clear(ctx context.Context) error {
	return s.tx(ctx, func(r metadata.Repository) error {
		return r.Delete(ctx, sessionKeys...)
	})
}

// Read returns the persisted session, or nil when no token is stored. An
// unparsable expiry reads as the zero time, i.e. already stale.
func (s *Store) Read(ctx context.Context) (*models.Session, error) {
	var sess *models.Session
	err := s.tx(ctx, func(r metadata.Repository) error {
		token, err := r.Get(ctx, KeyToken)
		if err != nil || len(token) == 0 {
			return err
		}
		sess = &models.Session{Token: string(token)}

		exp, err := r.Get(ctx, KeyTokenExpiry)
		if err != nil {
			return err
		}
		if t, perr := time.Parse(time.RFC3339, string(exp)); perr == nil {
			sess.Expiry = t
		}

		raw, err := r.Get(ctx, KeyUser)
		if err != nil {
			return err
		}
		if len(raw) > 0 {
			var u models.User
			if json.Unmarshal(raw, &u) == nil {
				sess.User = &u
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveChallenge persists a pending challenge. A challenge without a session
// token leaves mfa_session_token absent.
func (s *Store) SaveChallenge(ctx context.Context, c models.Challenge) error {
	return s.tx(ctx, func(r metadata.Repository) error {
		if c.SessionToken == "" {
			if err := r.Delete(ctx, KeyMFASessionToken); err != nil {
				return err
			}
		} else if err := r.Set(ctx, KeyMFASessionToken, []byte(c.SessionToken)); err != nil {
			return err
		}
		return r.Set(ctx, KeyMFAPendingEmail, []byte(c.PendingEmail))
	})
}

// ReadChallenge rebuilds the pending challenge, or nil if there is none. The
// origin is ResumeAction when a verification intent is stored.
func (s *Store) ReadChallenge(ctx context.Context) (*models.Challenge, error) {
	var c *models.Challenge
	err := s.tx(ctx, func(r metadata.Repository) error {
		tok, err := r.Get(ctx, KeyMFASessionToken)
		if err != nil {
			return err
		}
		email, err := r.Get(ctx, KeyMFAPendingEmail)
		if err != nil {
			return err
		}
		route, pending, err := readIntent(ctx, r)
		if err != nil {
			return err
		}
		if len(tok) == 0 && !pending {
			return nil
		}

		c = &models.Challenge{SessionToken: string(tok), PendingEmail: string(email), Origin: models.OriginLogin()}
		if pending {
			c.Origin = models.OriginResume(route)
		}
		return nil
	})
	return c, err
}

func (s *Store) ClearChallenge(ctx context.Context) error {
	return s.tx(ctx, func(r metadata.Repository) error {
		return r.Delete(ctx, KeyMFASessionToken, KeyMFAPendingEmail)
	})
}

// SaveVerificationIntent records that a verification is waiting on a
// step-up and where to resume it.
func (s *Store) SaveVerificationIntent(ctx context.Context, returnRoute string) error {
	return s.tx(ctx, func(r metadata.Repository) error {
		if err := r.Set(ctx, KeyVerificationPending, []byte("true")); err != nil {
			return err
		}
		return r.Set(ctx, KeyVerificationReturnPath, []byte(returnRoute))
	})
}

// ReadVerificationIntent returns the return route when a verification is
// pending and the route is known.
func (s *Store) ReadVerificationIntent(ctx context.Context) (string, bool, error) {
	var (
		route string
		ok    bool
	)
	err := s.tx(ctx, func(r metadata.Repository) error {
		var err error
		route, ok, err = readIntent(ctx, r)
		return err
	})
	return route, ok, err
}

func readIntent(ctx context.Context, r metadata.Repository) (string, bool, error) {
	pending, err := r.Get(ctx, KeyVerificationPending)
	if err != nil {
		return "", false, err
	}
	if string(pending) != "true" {
		return "", false, nil
	}
	route, err := r.Get(ctx, KeyVerificationReturnPath)
	if err != nil {
		return "", false, err
	}
	if len(route) == 0 {
		return "", false, nil
	}
	return string(route), true, nil
}

func (s *Store) ClearVerificationIntent(ctx context.Context) error {
	return s.tx(ctx, func(r metadata.Repository) error {
		return r.Delete(ctx, KeyVerificationPending, KeyVerificationReturnPath)
	})
}

func (s *Store) SetMFAToken(ctx context.Context, code string) error {
	return s.repo().Set(ctx, KeyMFAToken, []byte(code))
}

func (s *Store) MFAToken(ctx context.Context) (string, error) {
	v, err := s.repo().Get(ctx, KeyMFAToken)
	return string(v), err
}

func (s *Store) SetRememberUser(ctx context.Context, remember bool) error {
	if !remember {
		return s.repo().Delete(ctx, KeyRememberUser)
	}
	return s.repo().Set(ctx, KeyRememberUser, []byte(strconv.FormatBool(remember)))
}

func (s *Store) RememberUser(ctx context.Context) (bool, error) {
	v, err := s.repo().Get(ctx, KeyRememberUser)
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}
