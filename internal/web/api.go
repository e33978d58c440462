package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/shared/server/respond"
	"resume-matcher/internal/shared/util"
)

// Analyzer runs one stateless analysis.
type Analyzer interface {
	Analyze(ctx context.Context, resumeText, jobDescription string) (analyses.Result, error)
}

// ExtractFunc converts a document to text.
type ExtractFunc func(ctx context.Context, data []byte, declaredType, fileName string) (string, error)

// APIHandler exposes extraction and analysis as JSON endpoints. It keeps no
// session state.
type APIHandler struct {
	Analyzer Analyzer
	Extract  ExtractFunc
}

// NewAPIHandler constructs an APIHandler. extractFn defaults to extract.Extract.
func NewAPIHandler(analyzer Analyzer, extractFn ExtractFunc) *APIHandler {
	if extractFn == nil {
		extractFn = extract.Extract
	}
	return &APIHandler{Analyzer: analyzer, Extract: extractFn}
}

// RegisterRoutes attaches API routes to the router group.
func (h *APIHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extract", h.extract)
	rg.POST("/analyses", h.analyze)
}

type extractResponse struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
}

func (h *APIHandler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, extract.MaxUploadSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", extract.UserMessage(extract.ErrTooLarge), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, extract.MaxUploadSize+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	text, err := h.Extract(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), name)
	if err != nil {
		status, code := extractStatus(err)
		respond.Error(c, status, code, extract.UserMessage(err), nil)
		return
	}

	respond.OK(c, extractResponse{FileName: name, Text: text})
}

type analyzeRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

func (h *APIHandler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, "invalid request body", nil)
		return
	}
	if err := analyses.ValidateInput(req.ResumeText, req.JobDescription); err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeValidation, analyses.UserMessage(err), nil)
		return
	}

	result, err := h.Analyzer.Analyze(c.Request.Context(), req.ResumeText, req.JobDescription)
	if err != nil {
		respond.Error(c, analyzeStatus(err), analyses.ErrorCode(err), analyses.UserMessage(err), nil)
		return
	}

	respond.OK(c, result)
}

func extractStatus(err error) (int, string) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_file_type"
	case errors.Is(err, extract.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "empty_document"
	case errors.Is(err, extract.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	default:
		return http.StatusBadRequest, "unreadable_document"
	}
}

func analyzeStatus(err error) int {
	switch {
	case errors.Is(err, analyses.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, analyses.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
