package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/sandbox/config"
	"github.com/dmitrijs2005/docverify/internal/sandbox/totp"
	"github.com/dmitrijs2005/docverify/internal/sandbox/users"
)

const (
	email    = "alice@example.com"
	password = "Passw0rd!"
	secret   = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
)

type fixture struct {
	svc    *users.Service
	srv    *httptest.Server
	api    *client.HTTPClient
	router *gin.Engine
}

func newFixture(t *testing.T, maxDocumentSize int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	svc := users.NewService(users.NewMemoryRepository(), cfg)
	router := NewRouter(svc, maxDocumentSize, logging.Nop{})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{
		svc:    svc,
		srv:    srv,
		api:    client.NewHTTPClient(srv.URL, 5*time.Second, logging.Nop{}),
		router: router,
	}
}

func currentCode(t *testing.T, s string) string {
	t.Helper()
	c, err := totp.Code(s, time.Now())
	require.NoError(t, err)
	return c
}

func requireAPIError(t *testing.T, err error, status int, msg string) *client.APIError {
	t.Helper()
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok, "want *client.APIError, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
	assert.Equal(t, msg, apiErr.Message)
	return apiErr
}

func pdfDataURL() string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 test"))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.Errorf(common.ErrorValidation, "x"), http.StatusBadRequest},
		{common.ErrorAlreadyExists, http.StatusBadRequest},
		{common.Errorf(common.ErrorUnauthorized, "x"), http.StatusUnauthorized},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.Errorf(common.ErrMFARequired, "x"), http.StatusForbidden},
		{common.Errorf(common.ErrAccountLocked, "x"), http.StatusForbidden},
		{common.ErrorNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}

	assert.Equal(t, gin.H{"error": msgInternal}, errorBody(common.ErrorInternal))
	assert.Equal(t, gin.H{"error": "x", "requires_mfa": true}, errorBody(common.Errorf(common.ErrMFARequired, "x")))
}

func TestRegisterMeLogout(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()

	res, err := f.api.Register(ctx, models.RegisterRequest{Email: email, Password: password, FirstName: "Alice"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, "Alice", res.User.FirstName)

	_, err = f.api.Register(ctx, models.RegisterRequest{Email: email, Password: password})
	requireAPIError(t, err, http.StatusBadRequest, users.MsgEmailTaken)

	_, err = f.api.Register(ctx, models.RegisterRequest{Email: "bob@example.com", Password: "weak"})
	requireAPIError(t, err, http.StatusBadRequest, "Password must be at least 8 characters long")

	me, err := f.api.Me(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)

	require.NoError(t, f.api.Logout(ctx, res.Token))

	_, err = f.api.Me(ctx, res.Token)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = f.api.Me(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, "Missing or invalid Authorization header")
}

func TestLogin(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	_, err := f.svc.Seed(ctx, email, password, "")
	require.NoError(t, err)

	_, err = f.api.Login(ctx, email, "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, users.MsgInvalidCredentials)

	res, err := f.api.Login(ctx, email, password)
	require.NoError(t, err)
	assert.False(t, res.StepUp())
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, email, res.User.Email)

	acts, err := f.api.Activity(ctx, res.Token)
	require.NoError(t, err)
	require.NotEmpty(t, acts)
	assert.Equal(t, "login", acts[0].Action)
}

func TestLogin_StepUp(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	_, err := f.svc.Seed(ctx, email, password, secret)
	require.NoError(t, err)

	res, err := f.api.Login(ctx, email, password)
	require.NoError(t, err)
	require.True(t, res.StepUp())
	assert.Empty(t, res.Token)
	assert.Equal(t, email, res.Email)
	require.NotEmpty(t, res.MFASessionToken)

	_, err = f.api.VerifyMFA(ctx, "bogus", currentCode(t, secret))
	requireAPIError(t, err, http.StatusBadRequest, users.MsgInvalidMFASession)

	out, err := f.api.VerifyMFA(ctx, res.MFASessionToken, currentCode(t, secret))
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotEmpty(t, out.Token)
	require.NotNil(t, out.User)
	assert.True(t, out.User.MFAEnabled)

	_, err = f.api.VerifyMFA(ctx, res.MFASessionToken, currentCode(t, secret))
	requireAPIError(t, err, http.StatusBadRequest, users.MsgMFASessionUsed)
}

func TestUpload_StepUp(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	_, err := f.svc.Seed(ctx, email, password, secret)
	require.NoError(t, err)

	res, err := f.api.Login(ctx, email, password)
	require.NoError(t, err)
	out, err := f.api.VerifyMFA(ctx, res.MFASessionToken, currentCode(t, secret))
	require.NoError(t, err)

	req := models.UploadRequest{Document: pdfDataURL(), DocumentType: models.DocumentELicense}

	_, err = f.api.UploadDocument(ctx, out.Token, "", req)
	apiErr := requireAPIError(t, err, http.StatusForbidden, users.MsgMFARequired)
	assert.True(t, apiErr.RequiresMFA)
	assert.ErrorIs(t, err, client.ErrMFARequired)

	_, err = f.api.UploadDocument(ctx, out.Token, "000000x", req)
	requireAPIError(t, err, http.StatusForbidden, users.MsgInvalidMFAToken)

	verified, err := f.api.VerifyMFAToken(ctx, out.Token, currentCode(t, secret))
	require.NoError(t, err)
	require.True(t, verified.Success)

	up, err := f.api.UploadDocument(ctx, out.Token, verified.MFAToken, req)
	require.NoError(t, err)
	assert.NotEmpty(t, up.DocumentID)
	require.NotNil(t, up.VerificationResult)
	assert.Equal(t, up.DocumentID, up.VerificationResult.DocumentID)
	assert.Equal(t, 95.0, up.VerificationResult.ConfidenceScore)
	assert.Equal(t, "verified", up.VerificationResult.Status)
}

func TestUpload_WithoutMFAUser(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	reg, err := f.api.Register(ctx, models.RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)

	up, err := f.api.UploadDocument(ctx, reg.Token, "", models.UploadRequest{Document: pdfDataURL(), DocumentType: models.DocumentIDCard})
	require.NoError(t, err)
	require.NotNil(t, up.VerificationResult.IDCardData)
	assert.Equal(t, up.DocumentID, up.VerificationResult.IDCardData.IDNumber)

	_, err = f.api.UploadDocument(ctx, reg.Token, "", models.UploadRequest{Document: "not a data url", DocumentType: models.DocumentPassport})
	requireAPIError(t, err, http.StatusBadRequest, "Invalid document encoding")

	_, err = f.api.UploadDocument(ctx, reg.Token, "", models.UploadRequest{Document: pdfDataURL(), DocumentType: "selfie"})
	requireAPIError(t, err, http.StatusBadRequest, "Invalid document type")

	_, err = f.api.UploadDocument(ctx, "", "", models.UploadRequest{Document: pdfDataURL(), DocumentType: models.DocumentPassport})
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	_, token, err := f.svc.Register(ctx, users.RegisterInput{Email: email, Password: password}, users.RequestMeta{})
	require.NoError(t, err)

	doc := "data:image/png;base64," + strings.Repeat("A", 1_500_000)
	body, err := json.Marshal(models.UploadRequest{Document: doc, DocumentType: models.DocumentPassport})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Document too large. Maximum size is 1.0MB, received 1.5MB", got["error"])
	assert.Equal(t, "Please compress the image or reduce its resolution before uploading", got["details"])
}

func TestMFAEnrollment(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	reg, err := f.api.Register(ctx, models.RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	token := reg.Token

	status, err := f.api.MFAStatus(ctx, token)
	require.NoError(t, err)
	assert.False(t, status.MFAEnabled)

	_, err = f.api.EnableMFA(ctx, token, "123456")
	requireAPIError(t, err, http.StatusBadRequest, users.MsgMFANotSetUp)

	setup, err := f.api.SetupMFA(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))

	enabled, err := f.api.EnableMFA(ctx, token, currentCode(t, setup.Secret))
	require.NoError(t, err)
	assert.True(t, enabled.Success)
	assert.Len(t, enabled.BackupCodes, 10)

	status, err = f.api.MFAStatus(ctx, token)
	require.NoError(t, err)
	assert.True(t, status.MFAEnabled)

	codes, err := f.api.GenerateBackupCodes(ctx, token, password)
	require.NoError(t, err)
	assert.Len(t, codes, 10)

	err = f.api.DisableMFA(ctx, token, "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, users.MsgInvalidPassword)
	require.NoError(t, f.api.DisableMFA(ctx, token, password))

	_, err = f.api.VerifyMFAToken(ctx, token, "123456")
	requireAPIError(t, err, http.StatusBadRequest, users.MsgMFANotEnabled)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t, 1_000_000)
	ctx := context.Background()
	reg, err := f.api.Register(ctx, models.RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)

	err = f.api.DeleteAccount(ctx, reg.Token, "")
	requireAPIError(t, err, http.StatusBadRequest, users.MsgDeletePassword)

	err = f.api.DeleteAccount(ctx, reg.Token, "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, users.MsgIncorrectPassword)

	require.NoError(t, f.api.DeleteAccount(ctx, reg.Token, password))

	_, err = f.api.Login(ctx, email, password)
	requireAPIError(t, err, http.StatusUnauthorized, users.MsgInvalidCredentials)
}
