package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/sessions"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/shared/telemetry"
)

// multipartOverhead leaves room for form fields next to the file part.
const multipartOverhead = 1 << 20

// Controller is the session state machine driven by the HTML routes.
type Controller interface {
	Current(ctx context.Context, id string) (sessions.State, error)
	UpdateDraft(ctx context.Context, id string, in sessions.DraftInput) (sessions.State, error)
	Upload(ctx context.Context, id, fileName, contentType string, data []byte) (sessions.State, error)
	RejectUpload(ctx context.Context, id, fileName string, cause error) (sessions.State, error)
	Submit(ctx context.Context, id, resumeText, jobDescription string) (sessions.State, error)
	Reset(ctx context.Context, id string) (sessions.State, error)
}

// Handler serves the server-rendered pages. Every POST redirects back to /.
type Handler struct {
	Sessions Controller
	tmpl     *template.Template
}

// NewHandler constructs a Handler with the embedded templates.
func NewHandler(ctrl Controller) (*Handler, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{Sessions: ctrl, tmpl: tmpl}, nil
}

// RegisterRoutes attaches page routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.index)
	r.POST("/draft", h.draft)
	r.POST("/upload", h.upload)
	r.POST("/analyze", h.analyze)
	r.POST("/reset", h.reset)
}

func (h *Handler) index(c *gin.Context) {
	st, err := h.Sessions.Current(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Render(http.StatusOK, render.HTML{Template: h.tmpl, Name: "page", Data: newPageData(st)})
}

func (h *Handler) draft(c *gin.Context) {
	id := middleware.SessionIDFromContext(c)
	before, err := h.Sessions.Current(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	st, err := h.Sessions.UpdateDraft(c.Request.Context(), id, draftInput(c))
	h.finish(c, before, st, err)
}

func (h *Handler) upload(c *gin.Context) {
	id := middleware.SessionIDFromContext(c)
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, extract.MaxUploadSize+multipartOverhead)

	before, err := h.Sessions.Current(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No file chosen: keep typed fields and stay on the upload tab.
		in := draftInput(c)
		in.Mode = sessions.ModeUpload
		st, draftErr := h.Sessions.UpdateDraft(ctx, id, in)
		h.finish(c, before, st, draftErr)
		return
	case err != nil:
		cause := extract.ErrUnreadable
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cause = extract.ErrTooLarge
		}
		st, rejectErr := h.Sessions.RejectUpload(ctx, id, "", cause)
		h.finish(c, before, st, rejectErr)
		return
	}

	if jd, ok := c.GetPostForm("jobDescription"); ok {
		if _, err := h.Sessions.UpdateDraft(ctx, id, sessions.DraftInput{JobDescription: &jd}); err != nil {
			h.finish(c, before, before, err)
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		st, rejectErr := h.Sessions.RejectUpload(ctx, id, fileHeader.Filename, extract.ErrUnreadable)
		h.finish(c, before, st, rejectErr)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, extract.MaxUploadSize+1))
	if err != nil {
		st, rejectErr := h.Sessions.RejectUpload(ctx, id, fileHeader.Filename, extract.ErrUnreadable)
		h.finish(c, before, st, rejectErr)
		return
	}

	st, err := h.Sessions.Upload(ctx, id, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	h.finish(c, before, st, err)
}

func (h *Handler) analyze(c *gin.Context) {
	id := middleware.SessionIDFromContext(c)
	ctx := c.Request.Context()
	before, err := h.Sessions.Current(ctx, id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	draft := before.Draft()
	resume, ok := c.GetPostForm("resumeText")
	if !ok {
		resume = draft.ResumeText
	}
	jd, ok := c.GetPostForm("jobDescription")
	if !ok {
		jd = draft.JobDescription
	}

	st, err := h.Sessions.Submit(ctx, id, resume, jd)
	h.finish(c, before, st, err)
}

func (h *Handler) reset(c *gin.Context) {
	id := middleware.SessionIDFromContext(c)
	before, err := h.Sessions.Current(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	st, err := h.Sessions.Reset(c.Request.Context(), id)
	h.finish(c, before, st, err)
}

// finish redirects to the page. Errors that the view already shows, and
// requests the state machine ignored, still redirect.
func (h *Handler) finish(c *gin.Context, before, after sessions.State, err error) {
	switch {
	case err == nil,
		errors.Is(err, analyses.ErrInvalidInput),
		errors.Is(err, sessions.ErrBusy),
		errors.Is(err, sessions.ErrNotInInput),
		isExtractionError(err):
	default:
		h.renderError(c, err)
		return
	}
	if before.Kind() != after.Kind() && after.View != nil {
		c.Set(middleware.ViewTransitionKey, string(before.Kind())+"->"+string(after.Kind()))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) renderError(c *gin.Context, err error) {
	telemetry.Error("web.request_failed", map[string]any{
		"session_id": middleware.SessionIDFromContext(c),
		"path":       c.Request.URL.Path,
		"error":      err.Error(),
	})
	h.RenderPanic(c)
	c.Abort()
}

// RenderPanic writes the generic error page; the router's recovery uses it.
func (h *Handler) RenderPanic(c *gin.Context) {
	c.Render(http.StatusInternalServerError, render.HTML{Template: h.tmpl, Name: "error", Data: ""})
}

func draftInput(c *gin.Context) sessions.DraftInput {
	var in sessions.DraftInput
	if v, ok := c.GetPostForm("resumeText"); ok {
		in.ResumeText = &v
	}
	if v, ok := c.GetPostForm("jobDescription"); ok {
		in.JobDescription = &v
	}
	if v, ok := c.GetPostForm("mode"); ok {
		in.Mode = sessions.ParseMode(v)
	}
	return in
}

func isExtractionError(err error) bool {
	return errors.Is(err, extract.ErrUnsupportedType) ||
		errors.Is(err, extract.ErrEmptyDocument) ||
		errors.Is(err, extract.ErrUnreadable) ||
		errors.Is(err, extract.ErrTooLarge)
}
