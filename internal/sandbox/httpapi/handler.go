package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/sandbox/documents"
	"github.com/dmitrijs2005/docverify/internal/sandbox/users"
)

// Handler implements the REST endpoints.
type Handler struct {
	Users           *users.Service
	Auth            *Auth
	MaxDocumentSize int
	Log             logging.Logger
}

func meta(c *gin.Context) users.RequestMeta {
	return users.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No data provided")
		return
	}

	u, token, err := h.Users.Register(c.Request.Context(), users.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, meta(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    u.Public(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No data provided")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "Missing email or password")
		return
	}

	res, err := h.Users.Login(c.Request.Context(), req.Email, req.Password, meta(c))
	if err != nil {
		h.Log.Warn(c.Request.Context(), "login rejected", "email", req.Email, "error", err)
		writeError(c, err)
		return
	}
	if res.MFASessionToken != "" {
		c.JSON(http.StatusOK, gin.H{
			"requires_mfa":      true,
			"mfa_session_token": res.MFASessionToken,
			"user_id":           res.User.ID,
			"email":             res.User.Email,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": res.Token, "user": res.User.Public()})
}

func (h *Handler) Me(c *gin.Context) {
	u, _ := currentUser(c)
	c.JSON(http.StatusOK, u.Public())
}

func (h *Handler) Logout(c *gin.Context) {
	claims, _ := currentClaims(c)
	h.Users.Logout(c.Request.Context(), claims, meta(c))
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *Handler) Activity(c *gin.Context) {
	u, _ := currentUser(c)
	c.JSON(http.StatusOK, gin.H{"activities": h.Users.Activity(c.Request.Context(), u.ID)})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	u, _ := currentUser(c)
	var req passwordRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.Users.DeleteAccount(c.Request.Context(), u.ID, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Your account has been permanently deleted"})
}

func (h *Handler) MFAStatus(c *gin.Context) {
	u, _ := currentUser(c)
	status, err := h.Users.MFAStatus(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) MFASetup(c *gin.Context) {
	u, _ := currentUser(c)
	setup, err := h.Users.SetupMFA(c.Request.Context(), u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// MFAVerify serves two flows on one route: redeeming a login step-up
// ticket (mfa_session_token in the body, no bearer), and confirming a
// pending enrollment (bearer token).
func (h *Handler) MFAVerify(c *gin.Context) {
	var req struct {
		MFASessionToken     string `json:"mfa_session_token"`
		Token               string `json:"token"`
		GenerateBackupCodes bool   `json:"generate_backup_codes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No input data provided")
		return
	}

	if req.MFASessionToken != "" {
		u, token, err := h.Users.VerifyLoginMFA(c.Request.Context(), req.MFASessionToken, req.Token, meta(c))
		if err != nil {
			writeError(c, err)
			return
		}
		pub := u.Public()
		c.JSON(http.StatusOK, models.MFAVerifyResponse{Success: true, Token: token, User: &pub})
		return
	}

	if !h.Auth.authenticate(c) {
		return
	}
	u, _ := currentUser(c)
	codes, err := h.Users.EnableMFA(c.Request.Context(), u.ID, req.Token, req.GenerateBackupCodes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MFAVerifyResponse{
		Success:     true,
		BackupCodes: codes,
		Message:     "MFA enabled successfully",
	})
}

func (h *Handler) MFAVerifyToken(c *gin.Context) {
	u, _ := currentUser(c)
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)

	if err := h.Users.VerifyMFAToken(c.Request.Context(), u.ID, req.Token); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"mfa_token": req.Token,
		"message":   "MFA verification successful",
	})
}

func (h *Handler) MFADisable(c *gin.Context) {
	u, _ := currentUser(c)
	var req passwordRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.Users.DisableMFA(c.Request.Context(), u.ID, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "MFA disabled successfully"})
}

func (h *Handler) MFABackupCodes(c *gin.Context) {
	u, _ := currentUser(c)
	var req passwordRequest
	_ = c.ShouldBindJSON(&req)

	codes, err := h.Users.GenerateBackupCodes(c.Request.Context(), u.ID, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_codes": codes})
}

// Upload verifies a document without storing it.
func (h *Handler) Upload(c *gin.Context) {
	var req models.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "No input data provided")
		return
	}
	if req.Document == "" || req.DocumentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing required fields",
			"required": []string{"document", "document_type"},
		})
		return
	}

	if size := len(req.Document); size > h.MaxDocumentSize {
		h.Log.Warn(c.Request.Context(), "document too large", "size", size, "max", h.MaxDocumentSize)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Document too large. Maximum size is %.1fMB, received %.1fMB",
				float64(h.MaxDocumentSize)/1e6, float64(size)/1e6),
			"details": "Please compress the image or reduce its resolution before uploading",
		})
		return
	}

	docType, err := models.ParseDocumentType(string(req.DocumentType))
	if err != nil {
		badRequest(c, "Invalid document type")
		return
	}
	doc, err := documents.DecodeDataURL(req.Document)
	if err != nil {
		writeError(c, err)
		return
	}

	id, result := documents.Verify(docType, doc)
	u, _ := currentUser(c)
	h.Log.Info(c.Request.Context(), "document verified",
		"user_id", u.ID, "document_type", docType, "status", result.Status, "score", result.ConfidenceScore)

	c.JSON(http.StatusOK, gin.H{
		"message":             "Document verified successfully",
		"document_id":         id,
		"verification_result": result,
	})
}
