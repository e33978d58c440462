package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/util"
)

// Analyzer produces a validated report for a resume and job description.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (analyses.Result, error)
}

// ExtractFunc converts an uploaded document to text.
type ExtractFunc func(ctx context.Context, data []byte, declaredType, fileName string) (string, error)

const repoTimeout = 5 * time.Second

// Controller owns the view state machine of every session:
//
//	Input   --submit ok-->    Loading --success--> Results
//	                          Loading --failure--> Input{Error}
//	Results --reset-->        Input
//	any     --reset-->        Input (in-flight analysis canceled)
//
// Transitions of one session are serialized. Analyses run in the background
// and are applied only while the session is still Loading at the generation
// that started them.
type Controller struct {
	repo     Repo
	analyzer Analyzer
	extract  ExtractFunc
	logger   *zap.Logger
	now      func() time.Time

	locks keyedMutex

	mu       sync.Mutex
	inflight map[string]job
	base     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

type job struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewController wires a controller. extractFn defaults to extract.Extract.
func NewController(repo Repo, analyzer Analyzer, extractFn ExtractFunc, logger *zap.Logger) *Controller {
	if extractFn == nil {
		extractFn = extract.Extract
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Controller{
		repo:     repo,
		analyzer: analyzer,
		extract:  extractFn,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]job),
		base:     base,
		stop:     stop,
	}
}

// Current returns the session state, creating a fresh Input view for unknown ids.
func (c *Controller) Current(ctx context.Context, id string) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()
	return c.load(ctx, id)
}

// DraftInput carries form fields to store. Nil fields are left untouched.
type DraftInput struct {
	ResumeText     *string
	JobDescription *string
	Mode           Mode
}

// UpdateDraft stores typed text and the active tab without submitting.
func (c *Controller) UpdateDraft(ctx context.Context, id string, in DraftInput) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	st, view, err := c.loadInput(ctx, id)
	if err != nil {
		return st, err
	}
	draft := applyDraftInput(view.Draft, in)
	st.View = InputView{Draft: draft, Error: view.Error}
	return st, c.save(ctx, id, st)
}

// Upload extracts text from a document into the draft. On failure the resume
// text and file name are cleared and the file error is set; the job
// description is kept either way.
func (c *Controller) Upload(ctx context.Context, id, fileName, contentType string, data []byte) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	st, view, err := c.loadInput(ctx, id)
	if err != nil {
		return st, err
	}

	name, nameErr := util.SanitizeFileName(fileName)
	if nameErr != nil {
		name = "document"
	}
	text, extractErr := c.extract(ctx, data, contentType, name)
	return c.applyUpload(ctx, id, st, view, name, text, extractErr)
}

// RejectUpload records an upload that never reached extraction, such as an
// oversized request body.
func (c *Controller) RejectUpload(ctx context.Context, id, fileName string, cause error) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	st, view, err := c.loadInput(ctx, id)
	if err != nil {
		return st, err
	}
	name, _ := util.SanitizeFileName(fileName)
	return c.applyUpload(ctx, id, st, view, name, "", cause)
}

func (c *Controller) applyUpload(ctx context.Context, id string, st State, view InputView, name, text string, extractErr error) (State, error) {
	draft := view.Draft
	draft.Mode = ModeUpload
	if extractErr != nil {
		draft.ResumeText = ""
		draft.FileName = ""
		draft.FileError = extract.UserMessage(extractErr)
		c.logger.Info("session.upload_failed",
			zap.String("session_id", id),
			zap.String("file_name", name),
			zap.Error(extractErr),
		)
	} else {
		draft.ResumeText = text
		draft.FileName = name
		draft.FileError = ""
	}

	st.View = InputView{Draft: draft, Error: view.Error}
	if err := c.save(ctx, id, st); err != nil {
		return st, err
	}
	return st, extractErr
}

// Submit moves Input to Loading and starts the analysis in the background.
// Blank input keeps the Input view with a validation error.
func (c *Controller) Submit(ctx context.Context, id, resumeText, jobDescription string) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	st, view, err := c.loadInput(ctx, id)
	if err != nil {
		return st, err
	}

	draft := view.Draft
	draft.ResumeText = resumeText
	draft.JobDescription = jobDescription

	if err := analyses.ValidateInput(resumeText, jobDescription); err != nil {
		st.View = InputView{Draft: draft, Error: analyses.UserMessage(err)}
		if saveErr := c.save(ctx, id, st); saveErr != nil {
			return st, saveErr
		}
		return st, err
	}

	next := State{
		Generation: st.Generation + 1,
		View:       LoadingView{Draft: draft, StartedAt: c.now().UTC()},
	}
	if err := c.save(ctx, id, next); err != nil {
		return st, err
	}

	jobCtx, cancel := context.WithCancel(c.base)
	c.mu.Lock()
	c.inflight[id] = job{generation: next.Generation, cancel: cancel}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(jobCtx, id, next.Generation, draft)

	c.logTransition(id, KindInput, next)
	return next, nil
}

// Reset returns any view to an empty Input, discarding result, error and draft.
// An outstanding analysis is canceled and its outcome will be dropped.
func (c *Controller) Reset(ctx context.Context, id string) (State, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	st, err := c.load(ctx, id)
	if err != nil {
		return st, err
	}
	c.cancelJob(id)

	next := NewState()
	next.Generation = st.Generation + 1
	if err := c.save(ctx, id, next); err != nil {
		return st, err
	}
	c.logTransition(id, st.Kind(), next)
	return next, nil
}

// Close cancels outstanding analyses and waits for them to finish.
func (c *Controller) Close(ctx context.Context) error {
	c.stop()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context, id string, generation uint64, draft Draft) {
	defer c.wg.Done()

	var (
		result analyses.Result
		err    error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				c.logger.Error("session.analysis_panic", zap.String("session_id", id), zap.Any("panic", rec))
				err = analyses.ErrAnalysisFailed
			}
		}()
		result, err = c.analyzer.Analyze(ctx, draft.ResumeText, draft.JobDescription)
	}()

	c.complete(context.WithoutCancel(ctx), id, generation, draft, result, err)
}

func (c *Controller) complete(ctx context.Context, id string, generation uint64, draft Draft, result analyses.Result, analyzeErr error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	c.mu.Lock()
	if j, ok := c.inflight[id]; ok && j.generation == generation {
		j.cancel()
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	st, err := c.get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Error("session.complete_load_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	if err != nil || st.Generation != generation || st.Kind() != KindLoading {
		metrics.IncAnalysisStale()
		c.logger.Info("session.stale_response_dropped",
			zap.String("session_id", id),
			zap.Uint64("response_generation", generation),
			zap.Uint64("current_generation", st.Generation),
			zap.String("current_view", string(st.Kind())),
		)
		return
	}

	next := State{Generation: generation}
	if analyzeErr != nil {
		next.View = InputView{Draft: draft, Error: analyses.UserMessage(analyzeErr)}
	} else {
		next.View = ResultsView{Result: result}
	}
	if err := c.save(ctx, id, next); err != nil {
		c.logger.Error("session.complete_save_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	c.logTransition(id, KindLoading, next)
}

// loadInput loads the session and requires the Input view.
func (c *Controller) loadInput(ctx context.Context, id string) (State, InputView, error) {
	st, err := c.load(ctx, id)
	if err != nil {
		return st, InputView{}, err
	}
	switch v := st.View.(type) {
	case InputView:
		return st, v, nil
	case LoadingView:
		return st, InputView{}, ErrBusy
	default:
		return st, InputView{}, ErrNotInInput
	}
}

// load returns the stored state. A Loading view that no job in this process
// owns is turned back into Input with an error, since nothing will finish it.
func (c *Controller) load(ctx context.Context, id string) (State, error) {
	st, err := c.get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, err
	}
	if v, ok := st.View.(LoadingView); ok && !c.owns(id, st.Generation) {
		st.View = InputView{Draft: v.Draft, Error: analyses.UserMessage(analyses.ErrAnalysisFailed)}
		if err := c.save(ctx, id, st); err != nil {
			return State{}, err
		}
		c.logger.Warn("session.orphaned_loading_reverted", zap.String("session_id", id))
	}
	return st, nil
}

func (c *Controller) owns(id string, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.inflight[id]
	return ok && j.generation == generation
}

func (c *Controller) cancelJob(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j, ok := c.inflight[id]; ok {
		j.cancel()
		delete(c.inflight, id)
	}
}

func (c *Controller) get(ctx context.Context, id string) (State, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()
	return c.repo.Get(ctx, id)
}

func (c *Controller) save(ctx context.Context, id string, st State) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()
	return c.repo.Save(ctx, id, st)
}

func (c *Controller) logTransition(id string, from ViewKind, to State) {
	metrics.IncSessionTransition(string(to.Kind()))
	c.logger.Info("session.transition",
		zap.String("session_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to.Kind())),
		zap.Uint64("generation", to.Generation),
	)
}

func applyDraftInput(draft Draft, in DraftInput) Draft {
	if in.ResumeText != nil && *in.ResumeText != draft.ResumeText {
		draft.ResumeText = *in.ResumeText
		draft.FileName = ""
	}
	if in.JobDescription != nil {
		draft.JobDescription = *in.JobDescription
	}
	if in.Mode != "" {
		draft.Mode = ParseMode(string(in.Mode))
	}
	if draft.Mode == ModePaste {
		draft.FileError = ""
	}
	return draft
}
