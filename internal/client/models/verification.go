package models

// VerificationStatus is the state of a verification attempt.
type VerificationStatus string

const (
	StatusIdle      VerificationStatus = "idle"
	StatusUploading VerificationStatus = "uploading"
	StatusAnalyzing VerificationStatus = "analyzing"
	StatusComplete  VerificationStatus = "complete"
	StatusError     VerificationStatus = "error"
)

// InFlight reports whether a submission is currently running.
func (s VerificationStatus) InFlight() bool {
	return s == StatusUploading || s == StatusAnalyzing
}

// AnalysisSection is one itemized block of the detailed analysis.
type AnalysisSection struct {
	Score    float64  `json:"score"`
	Findings []string `json:"findings"`
}

type IDCardData struct {
	IDNumber         string `json:"id_number"`
	CardType         string `json:"card_type"`
	IssuingAuthority string `json:"issuing_authority"`
}

// VerificationResult is the structured verdict of the remote engine.
type VerificationResult struct {
	DocumentID       string                     `json:"-"`
	Status           string                     `json:"status"`
	Message          string                     `json:"message"`
	ConfidenceScore  float64                    `json:"confidence_score"`
	SecurityFeatures []string                   `json:"security_features,omitempty"`
	Recommendations  []string                   `json:"recommendations,omitempty"`
	DetailedAnalysis map[string]AnalysisSection `json:"detailed_analysis,omitempty"`
	IDCardData       *IDCardData                `json:"id_card_data,omitempty"`
	OCRPreview       string                     `json:"ocr_preview,omitempty"`
}

// UploadResponse is the success body of the upload endpoint.
type UploadResponse struct {
	DocumentID         string              `json:"document_id"`
	Message            string              `json:"message"`
	VerificationResult *VerificationResult `json:"verification_result"`
}

// UploadRequest is the upload body; Document is a data URL.
type UploadRequest struct {
	Document     string       `json:"document"`
	DocumentType DocumentType `json:"document_type"`
}

// Document is a file selected for verification.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Attempt is an immutable snapshot of a verification attempt. Progress is a
// client-side estimate, not transfer telemetry.
type Attempt struct {
	Status         VerificationStatus
	Progress       int
	Message        string
	File           *Document
	DocumentType   DocumentType
	Result         *VerificationResult
	StepUpRequired bool
}
