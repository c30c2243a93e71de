package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

const (
	headerRequestID = "X-Request-ID"
	headerMFAToken  = "X-MFA-TOKEN"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

// NewHTTPClient returns a client for baseURL (e.g. "http://127.0.0.1:5000").
// timeout bounds each request; zero means no client-side bound.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.Nop{}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "api"),
	}
}

type call struct {
	method   string
	path     string
	token    string
	mfaToken string
	in       any
	out      any
}

type errorBody struct {
	Error           string `json:"error"`
	Details         string `json:"details"`
	Message         string `json:"message"`
	RequiresMFA     bool   `json:"requires_mfa"`
	MFASessionToken string `json:"mfa_session_token"`
}

func (c *HTTPClient) do(ctx context.Context, cl call) error {
	var body io.Reader
	if cl.in != nil {
		b, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", cl.path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(headerRequestID, reqID)
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if cl.mfaToken != "" {
		req.Header.Set(headerMFAToken, cl.mfaToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", cl.method, "path", cl.path, "request_id", reqID, "error", err)
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return mapTransportError(ctx, err)
	}

	c.log.Debug(ctx, "request done",
		"method", cl.method, "path", cl.path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, raw)
	}

	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, raw []byte) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apiErr
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		apiErr.Malformed = true
		return apiErr
	}
	apiErr.Message = eb.Error
	if apiErr.Message == "" {
		apiErr.Message = eb.Message
	}
	apiErr.Details = eb.Details
	apiErr.RequiresMFA = eb.RequiresMFA
	apiErr.MFASessionToken = eb.MFASessionToken
	return apiErr
}

func mapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/auth/login",
		in:  map[string]string{"email": email, "password": password},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Register(ctx context.Context, r models.RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/register", in: r, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/me", token: token, out: &u}); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", ErrInvalidResponse)
	}
	return &u, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout", token: token})
}

func (c *HTTPClient) Activity(ctx context.Context, token string) ([]models.Activity, error) {
	var out struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/activity", token: token, out: &out}); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, token, password string) error {
	return c.do(ctx, call{
		method: http.MethodDelete, path: "/api/auth/account", token: token,
		in: map[string]string{"password": password},
	})
}

func (c *HTTPClient) VerifyMFA(ctx context.Context, mfaSessionToken, code string) (*models.MFAVerifyResponse, error) {
	var out models.MFAVerifyResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/mfa/verify",
		in:  map[string]string{"mfa_session_token": mfaSessionToken, "token": code},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VerifyMFAToken(ctx context.Context, token, code string) (*VerifyTokenResponse, error) {
	var out VerifyTokenResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/mfa/verify-token", token: token,
		in:  map[string]string{"token": code},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) MFAStatus(ctx context.Context, token string) (*models.MFAStatus, error) {
	var out models.MFAStatus
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/mfa/status", token: token, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SetupMFA(ctx context.Context, token string) (*models.MFASetup, error) {
	var out models.MFASetup
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/mfa/setup", token: token, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) EnableMFA(ctx context.Context, token, code string) (*models.MFAVerifyResponse, error) {
	var out models.MFAVerifyResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/mfa/verify", token: token,
		in:  map[string]any{"token": code, "generate_backup_codes": true},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DisableMFA(ctx context.Context, token, password string) error {
	return c.do(ctx, call{
		method: http.MethodPost, path: "/api/mfa/disable", token: token,
		in: map[string]string{"password": password},
	})
}

func (c *HTTPClient) GenerateBackupCodes(ctx context.Context, token, password string) ([]string, error) {
	var out struct {
		BackupCodes []string `json:"backup_codes"`
	}
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/mfa/generate-backup-codes", token: token,
		in:  map[string]string{"password": password},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

func (c *HTTPClient) UploadDocument(ctx context.Context, token, mfaToken string, r models.UploadRequest) (*models.UploadResponse, error) {
	var out models.UploadResponse
	err := c.do(ctx, call{
		method: http.MethodPost, path: "/api/documents/upload",
		token: token, mfaToken: mfaToken,
		in: r, out: &out,
	})
	if err != nil {
		return nil, err
	}
	if out.VerificationResult != nil {
		out.VerificationResult.DocumentID = out.DocumentID
	}
	return &out, nil
}
