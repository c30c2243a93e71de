package models

// MFAStatus is returned by GET /api/mfa/status.
type MFAStatus struct {
	MFAEnabled  bool `json:"mfa_enabled"`
	MFAVerified bool `json:"mfa_verified"`
	RequiresMFA bool `json:"requires_mfa"`
}

// MFASetup carries the TOTP secret and its QR code (a data URL).
type MFASetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

// MFAVerifyResponse is returned by POST /api/mfa/verify.
type MFAVerifyResponse struct {
	Success     bool     `json:"success"`
	Token       string   `json:"token,omitempty"`
	User        *User    `json:"user,omitempty"`
	BackupCodes []string `json:"backup_codes,omitempty"`
	Message     string   `json:"message,omitempty"`
}
