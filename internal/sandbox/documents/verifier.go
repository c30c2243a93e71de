// Package documents produces verification verdicts for uploaded documents.
// The verdict is a deterministic function of the document bytes and type;
// there is no image analysis behind it.
package documents

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/common"
)

const (
	StatusVerified         = "verified"
	StatusPotentiallyValid = "potentially valid"
	StatusInvalid          = "invalid"

	verifiedScore = 90
	validScore    = 85
	digitalScore  = 95

	// minimum edge length below which image quality is flagged
	minEdge = 300
)

// Upload is a decoded document data URL.
type Upload struct {
	ContentType string
	Data        []byte
}

// DecodeDataURL parses "data:<type>;base64,<payload>".
func DecodeDataURL(s string) (*Upload, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, common.Errorf(common.ErrorValidation, "Invalid document encoding")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, common.Errorf(common.ErrorValidation, "Invalid document encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, common.Errorf(common.ErrorValidation, "Invalid document encoding")
	}
	return &Upload{ContentType: strings.TrimSuffix(meta, ";base64"), Data: data}, nil
}

// Verify returns a document id and the verdict for doc. Driver's licenses
// are treated as digital licenses.
func Verify(docType models.DocumentType, doc *Upload) (string, *models.VerificationResult) {
	if docType == models.DocumentDriversLicense {
		docType = models.DocumentELicense
	}

	sum := sha256.Sum256(doc.Data)
	quality := imageQuality(doc)

	var (
		score       int
		features    []string
		consistency int
	)
	if docType == models.DocumentELicense {
		score = digitalScore
		features = []string{"digital_signature", "qr_code"}
		consistency = 10
	} else {
		base := 45 + int(sum[0]%16)
		if quality < 0 {
			base -= 10
		}
		factor := 1.0
		switch docType {
		case models.DocumentIDCard:
			factor = 1.2
		case models.DocumentPassport:
			factor = 1.1
		}
		features = securityFeatures(sum[1])
		bonus := min(30, 6*len(features))
		consistency = 5 + int(sum[2]%6)
		penalty := 0
		if len(features) == 0 {
			penalty = 10 + int(sum[3]%6)
		}
		score = int(float64(base)*factor) + bonus + consistency - penalty
		score = max(10, min(98, score))
	}

	result := &models.VerificationResult{
		ConfidenceScore:  float64(score),
		SecurityFeatures: features,
		DetailedAnalysis: analysis(score, consistency, quality, features),
	}
	result.Status, result.Message = verdict(score)
	result.Recommendations = recommendations(score, features)

	id := uuid.NewString()
	if docType == models.DocumentIDCard {
		id = idNumber(sum)
		result.IDCardData = &models.IDCardData{
			IDNumber:         id,
			CardType:         "National Identity Card",
			IssuingAuthority: "National Database and Registration Authority",
		}
		result.OCRPreview = fmt.Sprintf("IDENTITY CARD %s...", id)
	}
	return id, result
}

func verdict(score int) (string, string) {
	switch {
	case score >= verifiedScore:
		return StatusVerified, "Document appears authentic"
	case score >= validScore:
		return StatusPotentiallyValid, "Document appears authentic but with some uncertainty"
	default:
		return StatusInvalid, "Document does not meet verification requirements"
	}
}

var featureNames = []string{"hologram", "microtext", "watermark", "uv_elements", "smart_chip"}

func securityFeatures(b byte) []string {
	var out []string
	for i, name := range featureNames {
		if b&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return out
}

// imageQuality is 1 for a good image, -1 for a small one and 0 when the
// document is not a decodable image.
func imageQuality(doc *Upload) int {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(doc.Data))
	if err != nil {
		return 0
	}
	if cfg.Width < minEdge || cfg.Height < minEdge {
		return -1
	}
	return 1
}

func analysis(score, consistency, quality int, features []string) map[string]models.AnalysisSection {
	authenticity := models.AnalysisSection{Score: float64(score)}
	if score >= validScore {
		authenticity.Findings = []string{"Document appears to be authentic"}
	} else {
		authenticity.Findings = []string{"Document authenticity could not be verified"}
	}

	imageQ := models.AnalysisSection{Score: 80, Findings: []string{"Good image quality"}}
	switch quality {
	case -1:
		imageQ = models.AnalysisSection{Score: 40, Findings: []string{"Poor image quality affecting verification"}}
	case 0:
		imageQ = models.AnalysisSection{Score: 70, Findings: []string{"Non-image document"}}
	}

	risk := models.AnalysisSection{Score: 100, Findings: []string{}}
	if len(features) == 0 {
		risk.Score = 50
		risk.Findings = append(risk.Findings, "No security features detected")
	}
	if len(risk.Findings) == 0 {
		if score < validScore {
			risk.Findings = append(risk.Findings, "Insufficient confidence in document authenticity")
		} else {
			risk.Findings = append(risk.Findings, "No significant risk factors detected")
		}
	}

	return map[string]models.AnalysisSection{
		"authenticity": authenticity,
		"data_consistency": {
			Score:    float64(consistency * 10),
			Findings: []string{"ID number and document data are consistent"},
		},
		"image_quality": imageQ,
		"risk_factors":  risk,
	}
}

func recommendations(score int, features []string) []string {
	out := []string{}
	if len(features) == 0 {
		out = append(out, "No security features detected; verify physical document")
	}
	for _, f := range features {
		if f == "smart_chip" {
			out = append(out, "Smart chip detected; document likely authentic")
		}
	}
	if score < validScore {
		out = append(out, "Document failed verification; please provide a valid document")
	}
	return out
}

func idNumber(sum [32]byte) string {
	h := hex.EncodeToString(sum[:])
	digits := make([]byte, 0, 13)
	for i := 0; len(digits) < 13; i++ {
		digits = append(digits, '0'+h[i%len(h)]%10)
	}
	return fmt.Sprintf("%s-%s-%s", digits[:5], digits[5:12], digits[12:])
}
