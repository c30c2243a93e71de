// Package httpapi exposes the sandbox backend over REST/JSON with gin.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/sandbox/users"
)

// NewRouter wires routes and middleware.
func NewRouter(svc *users.Service, maxDocumentSize int, log logging.Logger) *gin.Engine {
	if log == nil {
		log = logging.Nop{}
	}
	authMiddleware := &Auth{Users: svc}
	h := &Handler{Users: svc, Auth: authMiddleware, MaxDocumentSize: maxDocumentSize, Log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", authMiddleware.RequireAuth, h.Me)
			authGroup.POST("/logout", authMiddleware.RequireAuth, h.Logout)
			authGroup.GET("/activity", authMiddleware.RequireAuth, h.Activity)
			authGroup.DELETE("/account", authMiddleware.RequireAuth, h.DeleteAccount)
		}

		mfa := api.Group("/mfa")
		{
			mfa.POST("/verify", h.MFAVerify)
			mfa.GET("/status", authMiddleware.RequireAuth, h.MFAStatus)
			mfa.POST("/setup", authMiddleware.RequireAuth, h.MFASetup)
			mfa.POST("/verify-token", authMiddleware.RequireAuth, h.MFAVerifyToken)
			mfa.POST("/disable", authMiddleware.RequireAuth, h.MFADisable)
			mfa.POST("/generate-backup-codes", authMiddleware.RequireAuth, h.MFABackupCodes)
		}

		docs := api.Group("/documents")
		{
			docs.POST("/upload", authMiddleware.RequireAuth, authMiddleware.RequireMFA, h.Upload)
		}
	}

	return r
}
