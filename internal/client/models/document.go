package models

import (
	"errors"
	"fmt"
)

// DocumentType classifies an uploaded document.
type DocumentType string

const (
	DocumentIDCard         DocumentType = "id_card"
	DocumentPassport       DocumentType = "passport"
	DocumentDriversLicense DocumentType = "drivers_license"
	DocumentELicense       DocumentType = "e_license"
	DocumentCertificate    DocumentType = "certificate"
	DocumentOther          DocumentType = "other"
)

var ErrUnknownDocumentType = errors.New("unknown document type")

// DocumentTypes lists every accepted type in display order.
var DocumentTypes = []DocumentType{
	DocumentIDCard,
	DocumentPassport,
	DocumentDriversLicense,
	DocumentELicense,
	DocumentCertificate,
	DocumentOther,
}

var documentLabels = map[DocumentType]string{
	DocumentIDCard:         "ID Card",
	DocumentPassport:       "Passport",
	DocumentDriversLicense: "Physical Driver's License",
	DocumentELicense:       "Digital/E-License (Auto-verified)",
	DocumentCertificate:    "Certificate",
	DocumentOther:          "Other Document",
}

func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if _, ok := documentLabels[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
	}
	return t, nil
}

func (t DocumentType) Label() string {
	if l, ok := documentLabels[t]; ok {
		return l
	}
	return string(t)
}

// Hint is the guidance shown when the type is selected, if any.
func (t DocumentType) Hint() string {
	switch t {
	case DocumentELicense:
		return "Digital licenses are automatically verified in demo mode. Document will be accepted with 95% confidence."
	case DocumentDriversLicense:
		return "If your license is digital, consider selecting the Digital/E-License option for better results."
	}
	return ""
}
