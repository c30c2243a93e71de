package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/filex"
)

// maxReadSize bounds what is loaded from disk. Images are downscaled before
// upload, so this is well above the server's own limit.
const maxReadSize = 25 << 20

// readFile is a test seam for filex.ReadFile.
var readFile = filex.ReadFile

func typeNames() string {
	names := make([]string, len(models.DocumentTypes))
	for i, t := range models.DocumentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Types lists the accepted document types.
func (a *App) Types(ctx context.Context) error {
	for _, t := range models.DocumentTypes {
		printlnFn(fmt.Sprintf("  %-16s %s", t, t.Label()))
	}
	return nil
}

// Verify loads a document from disk, selects its type and submits it.
//
//	verify ./scan.jpg id_card
func (a *App) Verify(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "Path to the document (JPEG, PNG or PDF)")
	if err != nil {
		return err
	}
	if path == "" {
		return errAborted
	}
	typ, err := a.argOrPrompt(args, 1, "Document type ("+typeNames()+")")
	if err != nil {
		return err
	}
	docType, err := models.ParseDocumentType(strings.ToLower(strings.TrimSpace(typ)))
	if err != nil {
		return &services.ValidationError{Msg: "Unknown document type. Choose one of: " + typeNames()}
	}

	f, err := readFile(path, maxReadSize)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return &services.ValidationError{Msg: fmt.Sprintf("File is too large. Maximum size is %dMB.", maxReadSize>>20)}
		}
		return &services.UserError{Msg: "Unable to read " + path, Err: err}
	}

	a.setRoute(nav.Verify)
	if err := a.pipeline.SelectFile(models.Document{Name: f.Name, ContentType: f.ContentType, Data: f.Data}); err != nil {
		return &services.UserError{Msg: "A verification is already in progress", Err: err}
	}
	if err := a.pipeline.SelectDocumentType(docType); err != nil {
		return &services.UserError{Msg: "A verification is already in progress", Err: err}
	}
	if hint := docType.Hint(); hint != "" {
		printlnFn(hint)
	}

	return a.submit(ctx)
}

// Retry submits the document that is already selected.
func (a *App) Retry(ctx context.Context) error {
	if at := a.pipeline.State(); at.File == nil || at.DocumentType == "" {
		return &services.ValidationError{Msg: "Nothing to retry. Use 'verify' to select a document."}
	}
	a.setRoute(nav.Verify)
	return a.submit(ctx)
}

// submit runs the pipeline while printing its progress. A step-up is not an
// error here: the navigator has already asked for the code, and 'retry'
// after 'mfa' resumes the upload.
func (a *App) submit(ctx context.Context) error {
	updates, stop := a.pipeline.Subscribe()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		showProgress(updates, done)
	}()

	att, err := a.pipeline.Submit(ctx)
	stop()
	close(done)
	wg.Wait()

	if err != nil {
		if att.StepUpRequired {
			return nil
		}
		return err
	}

	printlnFn(att.Message)
	printResult(att.Result)
	return nil
}

// showProgress prints each phase change and every tenth percent.
func showProgress(updates <-chan models.Attempt, done <-chan struct{}) {
	var (
		phase models.VerificationStatus
		step  = -1
	)
	for {
		select {
		case at, ok := <-updates:
			if !ok {
				return
			}
			if !at.Status.InFlight() {
				continue
			}
			if at.Status != phase || at.Progress/10 != step {
				phase, step = at.Status, at.Progress/10
				printlnFn(fmt.Sprintf("[%3d%%] %s", at.Progress, at.Message))
			}
		case <-done:
			return
		}
	}
}

// Status prints the current verification attempt.
func (a *App) Status(ctx context.Context) error {
	at := a.pipeline.State()
	printlnFn("Status:  ", at.Status)
	if at.File != nil {
		printlnFn("File:    ", at.File.Name)
	}
	if at.DocumentType != "" {
		printlnFn("Type:    ", at.DocumentType.Label())
	}
	if at.Status.InFlight() || at.Progress > 0 {
		printlnFn(fmt.Sprintf("Progress: %d%%", at.Progress))
	}
	if at.Message != "" {
		printlnFn("Message: ", at.Message)
	}
	if at.Status == models.StatusComplete {
		printResult(at.Result)
	}
	return nil
}

// Reset clears the attempt so a new document can be selected.
func (a *App) Reset(ctx context.Context) error {
	a.pipeline.Reset()
	printlnFn("Ready to verify your document.")
	return nil
}

func printResult(r *models.VerificationResult) {
	if r == nil {
		return
	}
	if r.DocumentID != "" {
		printlnFn("Document ID:", r.DocumentID)
	}
	printlnFn("Verdict:    ", strings.ToUpper(strings.ReplaceAll(r.Status, "_", " ")))
	if r.Message != "" {
		printlnFn("Summary:    ", r.Message)
	}
	printlnFn(fmt.Sprintf("Confidence:  %.0f%%", r.ConfidenceScore))

	if len(r.SecurityFeatures) > 0 {
		printlnFn("Security features:")
		for _, f := range r.SecurityFeatures {
			printlnFn("  -", f)
		}
	}

	if len(r.DetailedAnalysis) > 0 {
		printlnFn("Detailed analysis:")
		for _, name := range slices.Sorted(maps.Keys(r.DetailedAnalysis)) {
			sec := r.DetailedAnalysis[name]
			printlnFn(fmt.Sprintf("  %s (%.0f%%)", strings.ReplaceAll(name, "_", " "), sec.Score))
			for _, f := range sec.Findings {
				printlnFn("    -", f)
			}
		}
	}

	if d := r.IDCardData; d != nil {
		printlnFn("ID card:")
		printlnFn("  Number:   ", d.IDNumber)
		printlnFn("  Type:     ", d.CardType)
		printlnFn("  Authority:", d.IssuingAuthority)
	}

	if r.OCRPreview != "" {
		printlnFn("OCR preview:")
		printlnFn(r.OCRPreview)
	}

	if len(r.Recommendations) > 0 {
		printlnFn("Recommendations:")
		for _, rec := range r.Recommendations {
			printlnFn("  -", rec)
		}
	}
}
