package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/session"
)

func newStore(t *testing.T) (*session.Store, *sql.DB) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return session.NewStore(db), db
}

// fakeClient implements client.Client for unit tests. Unset funcs panic so
// an unexpected call fails loudly.
type fakeClient struct {
	login          func(ctx context.Context, email, password string) (*client.AuthResponse, error)
	register       func(ctx context.Context, req models.RegisterRequest) (*client.AuthResponse, error)
	me             func(ctx context.Context, token string) (*models.User, error)
	verifyMFA      func(ctx context.Context, sessionToken, code string) (*models.MFAVerifyResponse, error)
	verifyMFAToken func(ctx context.Context, token, code string) (*client.VerifyTokenResponse, error)
	mfaStatus      func(ctx context.Context, token string) (*models.MFAStatus, error)
	setupMFA       func(ctx context.Context, token string) (*models.MFASetup, error)
	enableMFA      func(ctx context.Context, token, code string) (*models.MFAVerifyResponse, error)
	disableMFA     func(ctx context.Context, token, password string) error
	backupCodes    func(ctx context.Context, token, password string) ([]string, error)
	activity       func(ctx context.Context, token string) ([]models.Activity, error)
	deleteAccount  func(ctx context.Context, token, password string) error

	calls int
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) Login(ctx context.Context, email, password string) (*client.AuthResponse, error) {
	f.calls++
	return f.login(ctx, email, password)
}

func (f *fakeClient) Register(ctx context.Context, req models.RegisterRequest) (*client.AuthResponse, error) {
	f.calls++
	return f.register(ctx, req)
}

func (f *fakeClient) Me(ctx context.Context, token string) (*models.User, error) {
	f.calls++
	return f.me(ctx, token)
}

func (f *fakeClient) Logout(context.Context, string) error {
	f.calls++
	return nil
}

func (f *fakeClient) Activity(ctx context.Context, token string) ([]models.Activity, error) {
	f.calls++
	return f.activity(ctx, token)
}

func (f *fakeClient) DeleteAccount(ctx context.Context, token, password string) error {
	f.calls++
	return f.deleteAccount(ctx, token, password)
}

func (f *fakeClient) VerifyMFA(ctx context.Context, sessionToken, code string) (*models.MFAVerifyResponse, error) {
	f.calls++
	return f.verifyMFA(ctx, sessionToken, code)
}

func (f *fakeClient) VerifyMFAToken(ctx context.Context, token, code string) (*client.VerifyTokenResponse, error) {
	f.calls++
	return f.verifyMFAToken(ctx, token, code)
}

func (f *fakeClient) MFAStatus(ctx context.Context, token string) (*models.MFAStatus, error) {
	f.calls++
	return f.mfaStatus(ctx, token)
}

func (f *fakeClient) SetupMFA(ctx context.Context, token string) (*models.MFASetup, error) {
	f.calls++
	return f.setupMFA(ctx, token)
}

func (f *fakeClient) EnableMFA(ctx context.Context, token, code string) (*models.MFAVerifyResponse, error) {
	f.calls++
	return f.enableMFA(ctx, token, code)
}

func (f *fakeClient) DisableMFA(ctx context.Context, token, password string) error {
	f.calls++
	return f.disableMFA(ctx, token, password)
}

func (f *fakeClient) GenerateBackupCodes(ctx context.Context, token, password string) ([]string, error) {
	f.calls++
	return f.backupCodes(ctx, token, password)
}

func (f *fakeClient) UploadDocument(context.Context, string, string, models.UploadRequest) (*models.UploadResponse, error) {
	panic("not used")
}

type fakeSession struct {
	token   string
	expired bool
}

func (f *fakeSession) BearerToken() string             { return f.token }
func (f *fakeSession) ExpireSession(ctx context.Context) { f.expired = true; f.token = "" }
