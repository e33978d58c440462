package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"resume-matcher/internal/llm"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/telemetry"
	"resume-matcher/internal/shared/util"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 120 * time.Second

// Service runs one provider round trip per Analyze call. Nothing is cached.
type Service struct {
	LLM      llm.Client
	Provider string
	Model    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// ValidateInput reports ErrInvalidInput unless both texts are non-blank.
func ValidateInput(resumeText, jobDescription string) error {
	if strings.TrimSpace(resumeText) == "" || strings.TrimSpace(jobDescription) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Analyze sends both texts verbatim to the provider and validates the reply.
func (s *Service) Analyze(ctx context.Context, resumeText, jobDescription string) (Result, error) {
	if err := ValidateInput(resumeText, jobDescription); err != nil {
		return Result{}, err
	}
	if s == nil || s.LLM == nil {
		return Result{}, ErrNotConfigured
	}

	logger := s.logger().With(
		zap.String("resume_fp", util.Fingerprint(resumeText)),
		zap.Int("resume_chars", len(resumeText)),
		zap.Int("job_chars", len(jobDescription)),
	)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startedAt := time.Now()
	raw, err := s.LLM.AnalyzeResume(callCtx, llm.AnalyzeInput{
		ResumeText:     resumeText,
		JobDescription: jobDescription,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			err = fmt.Errorf("%w: %w", ErrNotConfigured, err)
		} else {
			err = fmt.Errorf("%w: provider call: %w", ErrAnalysisFailed, err)
		}
		return Result{}, s.fail(logger, startedAt, err)
	}

	result, err := DecodeResult(raw)
	if err != nil {
		logger = logger.With(zap.String("payload_head", telemetry.TruncateForLog(string(raw), 200)))
		return Result{}, s.fail(logger, startedAt, fmt.Errorf("%w: %w", ErrAnalysisFailed, err))
	}

	elapsed := time.Since(startedAt)
	metrics.ObserveAnalysis(metrics.OutcomeOK, elapsed)
	logger.Info("analysis.completed",
		zap.Int("score", result.Score),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return result, nil
}

func (s *Service) fail(logger *zap.Logger, startedAt time.Time, err error) error {
	elapsed := time.Since(startedAt)
	code := ErrorCode(err)
	metrics.ObserveAnalysis(code, elapsed)
	logger.Warn("analysis.failed",
		zap.String("code", code),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.String("error", sanitizeError(err)),
	)
	return err
}

func (s *Service) logger() *zap.Logger {
	l := s.Logger
	if l == nil {
		l = zap.NewNop()
	}
	fields := make([]zap.Field, 0, 2)
	if p := strings.TrimSpace(s.Provider); p != "" {
		fields = append(fields, zap.String("ai_provider", p))
	}
	if m := strings.TrimSpace(s.Model); m != "" {
		fields = append(fields, zap.String("ai_model", m))
	}
	return l.With(fields...)
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
