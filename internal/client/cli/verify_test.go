package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/filex"
)

func stubReadFile(t *testing.T, f *filex.File, err error) *string {
	t.Helper()
	var gotPath string
	orig := readFile
	readFile = func(path string, limit int64) (*filex.File, error) {
		gotPath = path
		if limit != maxReadSize {
			t.Errorf("limit = %d", limit)
		}
		return f, err
	}
	t.Cleanup(func() { readFile = orig })
	return &gotPath
}

func TestVerify_SubmitsFile(t *testing.T) {
	lines := capturePrint(t)
	path := stubReadFile(t, &filex.File{Name: "scan.png", ContentType: "image/png", Data: []byte("png")}, nil)

	p := &fakePipeline{
		progress: []models.Attempt{
			{Status: models.StatusUploading, Progress: 40, Message: "Processing document..."},
		},
		attempt: models.Attempt{
			Status:  models.StatusComplete,
			Message: "Verification complete!",
			Result: &models.VerificationResult{
				DocumentID:      "doc-1",
				Status:          "potentially_valid",
				ConfidenceScore: 87,
				IDCardData:      &models.IDCardData{IDNumber: "12345-1234567-1"},
			},
		},
	}
	a := newTestApp(&fakeSession{}, p)

	require.NoError(t, a.Verify(context.Background(), []string{"scan.png", "ID_CARD"}))
	assert.Equal(t, "scan.png", *path)
	require.NotNil(t, p.file)
	assert.Equal(t, "image/png", p.file.ContentType)
	assert.Equal(t, models.DocumentIDCard, p.docType)
	assert.Equal(t, 1, p.submits)
	assert.Equal(t, nav.Verify, a.currentRoute())

	out := joined(lines)
	assert.Contains(t, out, "[ 40%] Processing document...")
	assert.Contains(t, out, "Verdict:     POTENTIALLY VALID")
	assert.Contains(t, out, "Document ID: doc-1")
	assert.Contains(t, out, "12345-1234567-1")
}

func TestVerify_PrintsTypeHint(t *testing.T) {
	lines := capturePrint(t)
	stubReadFile(t, &filex.File{Name: "l.jpg", ContentType: "image/jpeg"}, nil)

	a := newTestApp(&fakeSession{}, &fakePipeline{attempt: models.Attempt{Status: models.StatusComplete}})
	require.NoError(t, a.Verify(context.Background(), []string{"l.jpg", "e_license"}))
	assert.Contains(t, joined(lines), models.DocumentELicense.Hint())
}

func TestVerify_PromptsForMissingArgs(t *testing.T) {
	capturePrint(t)
	stubInputs(t, "", "passport.pdf", "passport")
	path := stubReadFile(t, &filex.File{Name: "passport.pdf", ContentType: "application/pdf"}, nil)

	p := &fakePipeline{attempt: models.Attempt{Status: models.StatusComplete}}
	a := newTestApp(&fakeSession{}, p)

	require.NoError(t, a.Verify(context.Background(), nil))
	assert.Equal(t, "passport.pdf", *path)
	assert.Equal(t, models.DocumentPassport, p.docType)
}

func TestVerify_InputErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		readErr error
		want    string
	}{
		{
			name: "unknown type",
			args: []string{"a.png", "visa"},
			want: "Unknown document type. Choose one of: " + typeNames(),
		},
		{
			name:    "too large",
			args:    []string{"a.png", "passport"},
			readErr: fmt.Errorf("%w: a.png", filex.ErrTooLarge),
			want:    "File is too large. Maximum size is 25MB.",
		},
		{
			name:    "unreadable",
			args:    []string{"missing.png", "passport"},
			readErr: fmt.Errorf("open missing.png: no such file"),
			want:    "Unable to read missing.png",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stubReadFile(t, &filex.File{}, tc.readErr)
			p := &fakePipeline{}
			a := newTestApp(&fakeSession{}, p)

			err := a.Verify(context.Background(), tc.args)
			require.Error(t, err)
			assert.Equal(t, tc.want, services.Message(err))
			assert.Zero(t, p.submits)
		})
	}
}

func TestVerify_StepUpIsNotAnError(t *testing.T) {
	capturePrint(t)
	stubReadFile(t, &filex.File{Name: "a.png", ContentType: "image/png"}, nil)

	p := &fakePipeline{
		attempt: models.Attempt{Status: models.StatusError, StepUpRequired: true, Message: "MFA verification required"},
		err:     &services.UserError{Msg: "MFA verification required"},
	}
	a := newTestApp(&fakeSession{}, p)

	require.NoError(t, a.Verify(context.Background(), []string{"a.png", "passport"}))
	assert.Equal(t, 1, p.submits)
}

func TestVerify_PipelineError(t *testing.T) {
	capturePrint(t)
	stubReadFile(t, &filex.File{Name: "a.gif", ContentType: "image/gif"}, nil)

	p := &fakePipeline{
		attempt: models.Attempt{Status: models.StatusError},
		err:     &services.ValidationError{Msg: "Unsupported file type. Please upload a JPEG, PNG, or PDF file."},
	}
	a := newTestApp(&fakeSession{}, p)

	err := a.Verify(context.Background(), []string{"a.gif", "other"})
	require.Error(t, err)
	assert.Contains(t, services.Message(err), "Unsupported file type")
}

func TestStatusAndReset(t *testing.T) {
	lines := capturePrint(t)
	p := &fakePipeline{attempt: models.Attempt{
		Status:       models.StatusAnalyzing,
		Progress:     85,
		Message:      "Analyzing document...",
		File:         &models.Document{Name: "scan.png"},
		DocumentType: models.DocumentPassport,
	}}
	a := newTestApp(&fakeSession{}, p)

	require.NoError(t, a.Status(context.Background()))
	out := joined(lines)
	assert.Contains(t, out, "File:     scan.png")
	assert.Contains(t, out, "Progress: 85%")
	assert.Contains(t, out, "Type:     Passport")

	require.NoError(t, a.Reset(context.Background()))
	assert.Equal(t, 1, p.resets)
}

func TestShowProgress_PrintsPhaseChangesAndSteps(t *testing.T) {
	lines := capturePrint(t)

	updates := make(chan models.Attempt, 8)
	for _, at := range []models.Attempt{
		{Status: models.StatusUploading, Progress: 0, Message: "Processing document..."},
		{Status: models.StatusUploading, Progress: 5, Message: "Processing document..."},
		{Status: models.StatusUploading, Progress: 12, Message: "Processing document..."},
		{Status: models.StatusAnalyzing, Progress: 12, Message: "Analyzing document..."},
		{Status: models.StatusComplete, Progress: 100, Message: "Verification complete!"},
	} {
		updates <- at
	}
	close(updates)

	showProgress(updates, make(chan struct{}))
	assert.Equal(t, []string{
		"[  0%] Processing document...",
		"[ 12%] Processing document...",
		"[ 12%] Analyzing document...",
	}, *lines)
}

func TestMFASetup_SavesQRCode(t *testing.T) {
	capturePrint(t)
	var saved []byte
	var savedPath string
	orig := writeFile
	writeFile = func(path string, data []byte) error {
		savedPath, saved = path, data
		return nil
	}
	t.Cleanup(func() { writeFile = orig })

	m := &fakeMFA{setup: &models.MFASetup{
		Secret: "JBSWY3DPEHPK3PXP",
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	}}
	a := newTestApp(&fakeSession{}, &fakePipeline{})
	a.mfa = m

	require.NoError(t, a.MFASetup(context.Background(), []string{"qr.png"}))
	assert.Equal(t, "qr.png", savedPath)
	assert.Equal(t, "png-bytes", string(saved))
}

func TestDecodeDataURL(t *testing.T) {
	got, err := decodeDataURL("data:image/png;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	_, err = decodeDataURL("not a data url")
	assert.Error(t, err)
}
