package analyses

import (
	"context"
	"errors"

	"resume-matcher/internal/llm"
)

var (
	ErrInvalidInput   = errors.New("resume text and job description are required")
	ErrNotConfigured  = errors.New("analysis provider not configured")
	ErrAnalysisFailed = errors.New("analysis failed")
)

// Error codes used by the JSON API.
const (
	ErrorCodeValidation    = "validation_error"
	ErrorCodeConfiguration = "configuration_error"
	ErrorCodeAnalysis      = "analysis_failed"
	ErrorCodeTimeout       = "analysis_timeout"
)

// UserMessage maps analysis errors to the banner shown above the entry form.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "Please provide both your resume and the job description."
	case errors.Is(err, ErrNotConfigured):
		return llm.ErrMissingAPIKey.Error()
	default:
		return "Failed to analyze resume. Please try again."
	}
}

// ErrorCode classifies err for API clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ErrorCodeValidation
	case errors.Is(err, ErrNotConfigured):
		return ErrorCodeConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	default:
		return ErrorCodeAnalysis
	}
}
