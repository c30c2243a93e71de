package verification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/models"
	"github.com/dmitrijs2005/docverify/internal/client/nav"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/logging"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("verification pipeline closed")

const (
	// Progress boundary between the uploading and analyzing phases.
	uploadProgressCap = 30
	doneProgress      = 100

	defaultProgressInterval = 50 * time.Millisecond
)

// Uploader submits an encoded document.
type Uploader interface {
	UploadDocument(ctx context.Context, token, mfaToken string, req models.UploadRequest) (*models.UploadResponse, error)
}

// Session is the part of the session manager a submission needs.
type Session interface {
	BearerToken() string
	MFAToken() string
	ExpireSession(ctx context.Context)
	BeginStepUp(ctx context.Context, c models.Challenge) error
}

// IntentStore remembers that a submission is waiting on a step-up.
type IntentStore interface {
	SaveVerificationIntent(ctx context.Context, returnRoute string) error
}

type Options struct {
	// ProgressInterval is the tick of the simulated progress estimate.
	ProgressInterval time.Duration
}

// Pipeline owns one verification attempt at a time. It is safe for
// concurrent use; Submit blocks until the attempt settles.
type Pipeline struct {
	api     Uploader
	session Session
	intents IntentStore
	nav     nav.Navigator
	log     logging.Logger
	opts    Options

	mu      sync.Mutex
	attempt models.Attempt
	gen     uint64
	cancel  context.CancelFunc
	closed  bool
	subs    map[chan models.Attempt]struct{}
}

// NewPipeline returns a pipeline in the freshly reset idle state.
func NewPipeline(api Uploader, session Session, intents IntentStore, navigator nav.Navigator,
	log logging.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logging.Nop{}
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	p := &Pipeline{
		api:     api,
		session: session,
		intents: intents,
		nav:     navigator,
		log:     log.With("component", "verification"),
		opts:    opts,
		subs:    make(map[chan models.Attempt]struct{}),
	}
	p.Reset()
	return p
}

func (p *Pipeline) State() models.Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

// Subscribe returns a channel carrying the latest snapshot after each change
// and a function that stops delivery. The channel is closed by Close.
func (p *Pipeline) Subscribe() (<-chan models.Attempt, func()) {
	ch := make(chan models.Attempt, 1)
	p.mu.Lock()
	if p.closed {
		close(ch)
		p.mu.Unlock()
		return ch, func() {}
	}
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
		})
	}
}

// publishLocked hands the current snapshot to subscribers. Callers hold mu.
func (p *Pipeline) publishLocked() {
	for ch := range p.subs {
		publish(ch, p.attempt)
	}
}

// publish keeps only the newest snapshot in a subscriber's buffer.
func publish(ch chan models.Attempt, a models.Attempt) {
	for {
		select {
		case ch <- a:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// set mutates the attempt regardless of generation.
func (p *Pipeline) set(fn func(a *models.Attempt)) models.Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.attempt)
	p.publishLocked()
	return p.attempt
}

// update mutates the attempt only while gen is current. fn reports whether
// it changed anything worth publishing.
func (p *Pipeline) update(gen uint64, fn func(a *models.Attempt) bool) (models.Attempt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return p.attempt, false
	}
	if fn(&p.attempt) {
		p.publishLocked()
	}
	return p.attempt, true
}

// SelectFile sets the document to submit and clears any previous outcome.
func (p *Pipeline) SelectFile(doc models.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt.Status.InFlight() {
		return ErrAttemptInFlight
	}
	p.attempt = models.Attempt{
		Status:       models.StatusIdle,
		File:         &doc,
		DocumentType: p.attempt.DocumentType,
	}
	p.publishLocked()
	return nil
}

// SelectDocumentType sets the type. Types with guidance show it as the idle
// message.
func (p *Pipeline) SelectDocumentType(t models.DocumentType) error {
	if _, err := models.ParseDocumentType(string(t)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt.Status.InFlight() {
		return ErrAttemptInFlight
	}
	p.attempt.DocumentType = t
	if hint := t.Hint(); hint != "" {
		p.attempt.Status = models.StatusIdle
		p.attempt.Progress = 0
		p.attempt.Message = hint
		p.attempt.Result = nil
		p.attempt.StepUpRequired = false
	}
	p.publishLocked()
	return nil
}

// Reset clears the file, type, outcome and progress. A submission still in
// flight is cancelled and its outcome discarded.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.attempt = models.Attempt{Status: models.StatusIdle, Message: MsgReady}
	p.publishLocked()
}

// Close cancels any submission and closes subscriber channels.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	for ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}

// Submit encodes and uploads the selected document and blocks until the
// attempt reaches complete or error. The returned error carries the
// user-facing message (see services.Message).
func (p *Pipeline) Submit(ctx context.Context) (models.Attempt, error) {
	p.mu.Lock()
	if p.closed {
		a := p.attempt
		p.mu.Unlock()
		return a, ErrClosed
	}
	if p.attempt.Status.InFlight() {
		a := p.attempt
		p.mu.Unlock()
		return a, ErrAttemptInFlight
	}

	file, docType := p.attempt.File, p.attempt.DocumentType
	var reject string
	switch {
	case file == nil || docType == "":
		reject = MsgMissingInputs
	case !Supported(*file):
		reject = MsgUnsupportedType
	}
	if reject != "" {
		p.attempt.Status = models.StatusError
		p.attempt.Message = reject
		p.publishLocked()
		a := p.attempt
		p.mu.Unlock()
		return a, &services.ValidationError{Msg: reject}
	}

	token := p.session.BearerToken()
	if token == "" {
		p.attempt.Status = models.StatusError
		p.attempt.Message = services.MsgAuthRequired
		p.publishLocked()
		a := p.attempt
		p.mu.Unlock()
		p.nav.Navigate(nav.Login, nav.State{})
		return a, &services.UserError{Msg: services.MsgAuthRequired, Err: client.ErrUnauthorized}
	}

	p.gen++
	gen := p.gen
	sctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.attempt.Status = models.StatusUploading
	p.attempt.Progress = 0
	p.attempt.Message = MsgProcessing
	p.attempt.Result = nil
	p.attempt.StepUpRequired = false
	p.publishLocked()
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		if p.gen == gen {
			p.cancel = nil
		}
		p.mu.Unlock()
	}()

	p.log.Info(ctx, "submitting document", "type", string(docType), "content_type", ContentType(*file), "size", len(file.Data))
	return p.run(sctx, gen, *file, docType, token)
}

func (p *Pipeline) run(ctx context.Context, gen uint64, file models.Document, docType models.DocumentType, token string) (models.Attempt, error) {
	stopUpload := p.startProgress(gen, models.StatusUploading, uploadProgressCap)
	defer stopUpload()

	encoded, err := Encode(file)
	if err != nil {
		stopUpload()
		p.log.Warn(ctx, "encode document", "error", err)
		return p.fail(gen, MsgEncodeFailed, err)
	}

	resp, err := p.api.UploadDocument(ctx, token, p.session.MFAToken(), models.UploadRequest{
		Document:     encoded,
		DocumentType: docType,
	})
	stopUpload()
	if err != nil {
		return p.handleError(ctx, gen, err)
	}
	if resp.VerificationResult == nil {
		return p.fail(gen, MsgInvalidResponse, client.ErrInvalidResponse)
	}

	if _, ok := p.update(gen, func(a *models.Attempt) bool {
		a.Status = models.StatusAnalyzing
		a.Progress = max(a.Progress, uploadProgressCap)
		a.Message = MsgAnalyzing
		return true
	}); !ok {
		return p.State(), context.Canceled
	}

	stopAnalysis := p.startProgress(gen, models.StatusAnalyzing, doneProgress)
	result := resp.VerificationResult
	stopAnalysis()

	a, ok := p.update(gen, func(a *models.Attempt) bool {
		a.Status = models.StatusComplete
		a.Progress = doneProgress
		a.Message = MsgComplete
		a.Result = result
		return true
	})
	if !ok {
		return a, context.Canceled
	}
	p.log.Info(ctx, "verification complete", "document_id", result.DocumentID, "status", result.Status)
	return a, nil
}

// startProgress ticks Progress up by one per interval until limit, while
// the attempt is still in phase. The returned stop waits for the ticker
// goroutine to exit and may be called more than once.
func (p *Pipeline) startProgress(gen uint64, phase models.VerificationStatus, limit int) func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		t := time.NewTicker(p.opts.ProgressInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
			}
			capped := false
			_, ok := p.update(gen, func(a *models.Attempt) bool {
				if a.Status != phase || a.Progress >= limit {
					capped = true
					return false
				}
				a.Progress++
				return true
			})
			if !ok || capped {
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

// fail moves the attempt to error, keeping the progress reached so far.
func (p *Pipeline) fail(gen uint64, msg string, cause error) (models.Attempt, error) {
	a, ok := p.update(gen, func(a *models.Attempt) bool {
		a.Status = models.StatusError
		a.Message = msg
		return true
	})
	if !ok {
		return a, context.Canceled
	}
	return a, &services.UserError{Msg: msg, Err: cause}
}

func (p *Pipeline) handleError(ctx context.Context, gen uint64, err error) (models.Attempt, error) {
	apiErr, isAPI := client.AsAPIError(err)

	switch {
	case errors.Is(err, client.ErrInvalidResponse):
		return p.fail(gen, MsgInvalidResponse, err)

	case isAPI && apiErr.StatusCode == http.StatusUnauthorized:
		a, ferr := p.fail(gen, services.MsgAuthRequired, err)
		p.session.ExpireSession(context.WithoutCancel(ctx))
		return a, ferr

	case errors.Is(err, client.ErrMFARequired):
		return p.stepUp(ctx, gen, err)

	case isAPI && apiErr.StatusCode == http.StatusRequestEntityTooLarge:
		msg := orDefault(apiErr.Message, "Document too large") + ". " + orDefault(apiErr.Details, MsgTooLargeHint)
		return p.fail(gen, msg, err)

	case isAPI:
		var msg string
		if apiErr.Message != "" {
			msg = apiErr.Message
			if apiErr.Details != "" {
				msg += " - " + apiErr.Details
			}
		} else {
			msg = fmt.Sprintf("Upload failed with status: %d - %s", apiErr.StatusCode, apiErr.StatusText())
		}
		return p.fail(gen, msg, err)

	case errors.Is(err, client.ErrUnavailable), errors.Is(err, client.ErrTimeout):
		return p.fail(gen, services.MsgUnreachable, err)

	case errors.Is(err, context.Canceled):
		return p.fail(gen, MsgCancelled, err)
	}

	p.log.Warn(ctx, "upload failed", "error", err)
	return p.fail(gen, MsgEncodeFailed, err)
}

// stepUp parks the attempt and hands a resume challenge to the session.
// After the challenge the user lands back on the verify screen.
func (p *Pipeline) stepUp(ctx context.Context, gen uint64, cause error) (models.Attempt, error) {
	ctx = context.WithoutCancel(ctx)
	if err := p.intents.SaveVerificationIntent(ctx, nav.Verify); err != nil {
		p.log.Warn(ctx, "save verification intent", "error", err)
	}

	a, ok := p.update(gen, func(a *models.Attempt) bool {
		a.Status = models.StatusError
		a.Message = MsgStepUp
		a.StepUpRequired = true
		return true
	})
	if !ok {
		return a, context.Canceled
	}

	p.log.Info(ctx, "upload requires mfa step-up")
	c := models.Challenge{Origin: models.OriginResume(nav.Verify)}
	if apiErr, ok := client.AsAPIError(cause); ok {
		c.SessionToken = apiErr.MFASessionToken
	}
	if err := p.session.BeginStepUp(ctx, c); err != nil {
		p.log.Error(ctx, "begin step-up", "error", err)
	}
	return a, &services.UserError{Msg: MsgStepUp, Err: cause}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
