package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/analyses"
	"resume-matcher/internal/extract"
)

func newAPIRouter(analyzer Analyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAPIHandler(analyzer, nil).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code
}

func TestAPIAnalyzeSuccess(t *testing.T) {
	r := newAPIRouter(&stubAnalyzer{result: sampleResult()})

	rec := postJSON(t, r, "/api/v1/analyses", `{"resumeText":"r","jobDescription":"j"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got analyses.Result
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Score != 82 || len(got.MissingKeywords) != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestAPIAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
	}{
		{"blank input", nil, `{"resumeText":" ","jobDescription":"j"}`, http.StatusBadRequest, "validation_error"},
		{"bad json", nil, `{`, http.StatusBadRequest, "validation_error"},
		{"missing key", fmt.Errorf("wrap: %w", analyses.ErrNotConfigured), `{"resumeText":"r","jobDescription":"j"}`, http.StatusServiceUnavailable, "configuration_error"},
		{"provider failure", analyses.ErrAnalysisFailed, `{"resumeText":"r","jobDescription":"j"}`, http.StatusBadGateway, "analysis_failed"},
		{"timeout", fmt.Errorf("%w: %w", analyses.ErrAnalysisFailed, context.DeadlineExceeded), `{"resumeText":"r","jobDescription":"j"}`, http.StatusGatewayTimeout, "analysis_timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAPIRouter(&stubAnalyzer{err: tc.err})
			rec := postJSON(t, r, "/api/v1/analyses", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, code)
			}
		})
	}
}

func TestAPIExtract(t *testing.T) {
	r := newAPIRouter(&stubAnalyzer{})

	req := multipartUpload(t, "../cv.txt", "text/plain", []byte("hello resume"), nil)
	req.URL.Path = "/api/v1/extract"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got extractResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FileName != "cv.txt" || got.Text != "hello resume" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestAPIExtractErrors(t *testing.T) {
	cases := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		status      int
		code        string
	}{
		{"unsupported", "photo.png", "image/png", []byte("x"), http.StatusUnsupportedMediaType, "unsupported_file_type"},
		{"empty", "blank.txt", "text/plain", []byte("  \n"), http.StatusUnprocessableEntity, "empty_document"},
		{"corrupt pdf", "cv.pdf", "application/pdf", []byte("not a pdf"), http.StatusBadRequest, "unreadable_document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAPIRouter(&stubAnalyzer{})
			req := multipartUpload(t, tc.fileName, tc.contentType, tc.data, nil)
			req.URL.Path = "/api/v1/extract"
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, code)
			}
		})
	}
}

func TestAPIExtractRequiresFile(t *testing.T) {
	r := newAPIRouter(&stubAnalyzer{})
	rec := postJSON(t, r, "/api/v1/extract", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExtractStatusDefaults(t *testing.T) {
	if status, _ := extractStatus(extract.ErrTooLarge); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status %d", status)
	}
}
