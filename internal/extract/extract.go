package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"resume-matcher/internal/shared/metrics"
)

const (
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip      = "application/zip"
	mimeOctet    = "application/octet-stream"
)

// MaxUploadSize caps uploaded documents.
const MaxUploadSize = 10 << 20

// AcceptAttr lists the extensions offered by file pickers.
const AcceptAttr = ".txt,.md,.pdf,.docx"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("empty document")
	ErrUnreadable      = errors.New("unreadable document")
	ErrTooLarge        = errors.New("document too large")
)

// Kind is the resolved document format.
type Kind string

const (
	KindText Kind = "text"
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// Extract converts an uploaded document to plain text. The declared type wins;
// generic declarations fall back to the file extension, then content sniffing.
func Extract(ctx context.Context, data []byte, declaredType string, fileName string) (string, error) {
	startedAt := time.Now()
	kind, text, err := extract(ctx, data, declaredType, fileName)
	metrics.ObserveExtraction(string(kind), outcome(err), time.Since(startedAt))
	return text, err
}

func extract(ctx context.Context, data []byte, declaredType string, fileName string) (Kind, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if len(data) > MaxUploadSize {
		return "", "", fmt.Errorf("%w: %q is %d bytes", ErrTooLarge, fileName, len(data))
	}
	kind, err := Resolve(declaredType, fileName, data)
	if err != nil {
		return "", "", err
	}

	var text string
	switch kind {
	case KindText:
		text = string(data)
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	}
	if err != nil {
		return kind, "", fmt.Errorf("%w: %s %q: %w", ErrUnreadable, kind, fileName, err)
	}
	if strings.TrimSpace(text) == "" {
		return kind, "", fmt.Errorf("%w: %s %q", ErrEmptyDocument, kind, fileName)
	}
	return kind, text, nil
}

// Resolve picks the extraction strategy without parsing the payload.
func Resolve(declaredType string, fileName string, data []byte) (Kind, error) {
	declared := normalizeMimeType(declaredType)
	switch declared {
	case mimeText, mimeMarkdown:
		return KindText, nil
	case mimePDF:
		return KindPDF, nil
	case mimeDOCX:
		return KindDOCX, nil
	}

	// A specific declared type is trusted; the extension only refines generic
	// or textual declarations.
	switch ext := strings.ToLower(filepath.Ext(fileName)); {
	case ext == ".txt" || ext == ".md":
		if isGenericType(declared) || strings.HasPrefix(declared, "text/") {
			return KindText, nil
		}
	case ext == ".pdf" && isGenericType(declared):
		return KindPDF, nil
	case ext == ".docx" && isGenericType(declared):
		return KindDOCX, nil
	}

	if isGenericType(declared) && len(data) > 0 {
		detected := mimetype.Detect(data)
		switch {
		case detected.Is(mimePDF):
			return KindPDF, nil
		case detected.Is(mimeDOCX):
			return KindDOCX, nil
		case detected.Is(mimeText):
			return KindText, nil
		}
	}

	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, fileName, declaredType)
}

// UserMessage maps extraction errors to the text shown beside the file control.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedType):
		return "Unsupported file type. Please upload PDF, DOCX, or TXT."
	case errors.Is(err, ErrEmptyDocument):
		return "Could not extract text. The file might be empty or a scanned image."
	case errors.Is(err, ErrTooLarge):
		return "File is too large. Please upload a document under 10 MB."
	default:
		return "Failed to read file."
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported"
	case errors.Is(err, ErrEmptyDocument):
		return "empty"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrUnreadable):
		return "unreadable"
	default:
		return "canceled"
	}
}

func normalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func isGenericType(declared string) bool {
	switch declared {
	case "", mimeOctet, mimeZip:
		return true
	default:
		return false
	}
}
