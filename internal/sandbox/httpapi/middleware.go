package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/sandbox/auth"
	"github.com/dmitrijs2005/docverify/internal/sandbox/users"
)

const (
	userKey   = "user"
	claimsKey = "claims"

	headerRequestID = "X-Request-ID"
	headerMFAToken  = "X-MFA-TOKEN"
)

// RequestLogger logs one line per request. Headers are never logged.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.Nop{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id := c.GetHeader(headerRequestID); id != "" {
			args = append(args, "request_id", id)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error(c.Request.Context(), "request", args...)
			return
		}
		log.Info(c.Request.Context(), "request", args...)
	}
}

// Auth validates bearer tokens and the step-up header.
type Auth struct {
	Users *users.Service
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func (m *Auth) authenticate(c *gin.Context) bool {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return false
	}
	u, claims, err := m.Users.Authenticate(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, err)
		return false
	}
	c.Set(userKey, u)
	c.Set(claimsKey, claims)
	return true
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
func (m *Auth) RequireAuth(c *gin.Context) {
	if m.authenticate(c) {
		c.Next()
	}
}

// RequireMFA must follow RequireAuth. Users with a second factor must send
// a current TOTP code in X-MFA-TOKEN.
func (m *Auth) RequireMFA(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if err := m.Users.CheckMFA(c.Request.Context(), u, c.GetHeader(headerMFAToken)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*users.User)
	return u, ok
}

func currentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
