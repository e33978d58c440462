package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"resume-matcher/internal/llm"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModels struct {
	calls []generateCall
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: config})
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestAnalyzeResumeSendsConstrainedRequest(t *testing.T) {
	models := &fakeModels{resp: textResponse(&genai.Part{Text: `{"score":80}`})}
	c := newClient(models, "", zap.NewNop())

	raw, err := c.AnalyzeResume(context.Background(), llm.AnalyzeInput{ResumeText: "RESUME BODY", JobDescription: "JOB BODY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"score":80}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(models.calls))
	}

	call := models.calls[0]
	if call.model != defaultModel {
		t.Fatalf("expected default model, got %q", call.model)
	}
	prompt := call.contents[0].Parts[0].Text
	if !strings.Contains(prompt, "RESUME BODY") || !strings.Contains(prompt, "JOB BODY") {
		t.Fatalf("prompt missing inputs: %q", prompt)
	}

	cfg := call.config
	if cfg.ResponseMIMEType != "application/json" {
		t.Fatalf("unexpected mime type %q", cfg.ResponseMIMEType)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != llm.SystemInstruction {
		t.Fatalf("expected system instruction to be set")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("expected zero temperature")
	}
	schema := cfg.ResponseSchema
	if schema == nil || schema.Type != genai.TypeObject {
		t.Fatalf("expected object schema, got %+v", schema)
	}
	if strings.Join(schema.Required, ",") != "score,summary,matchedKeywords,missingKeywords,improvements,formattingIssues" {
		t.Fatalf("unexpected required fields: %v", schema.Required)
	}
	if schema.Properties["score"].Type != genai.TypeInteger {
		t.Fatalf("expected integer score")
	}
	if got := schema.Properties["missingKeywords"]; got.Type != genai.TypeArray || got.Items.Type != genai.TypeString {
		t.Fatalf("expected string array for missingKeywords, got %+v", got)
	}
	for name, prop := range schema.Properties {
		if prop.Description == "" {
			t.Fatalf("expected description for %s", name)
		}
	}
}

func TestAnalyzeResumeSkipsThoughtParts(t *testing.T) {
	models := &fakeModels{resp: textResponse(
		&genai.Part{Text: "thinking about it", Thought: true},
		&genai.Part{Text: `{"score":`},
		&genai.Part{Text: `1}`},
	)}
	c := newClient(models, "gemini-2.5-pro", nil)

	raw, err := c.AnalyzeResume(context.Background(), llm.AnalyzeInput{ResumeText: "r", JobDescription: "j"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"score":1}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
	if models.calls[0].model != "gemini-2.5-pro" {
		t.Fatalf("expected configured model, got %q", models.calls[0].model)
	}
}

func TestAnalyzeResumeEmptyResponse(t *testing.T) {
	for _, resp := range []*genai.GenerateContentResponse{
		nil,
		{},
		textResponse(&genai.Part{Text: "   "}),
	} {
		c := newClient(&fakeModels{resp: resp}, "", nil)
		if _, err := c.AnalyzeResume(context.Background(), llm.AnalyzeInput{}); !errors.Is(err, llm.ErrEmptyResponse) {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	}
}

func TestAnalyzeResumeWrapsProviderError(t *testing.T) {
	apiErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	c := newClient(&fakeModels{err: apiErr}, "", nil)

	_, err := c.AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	var got genai.APIError
	if !errors.As(err, &got) || got.Code != http.StatusTooManyRequests {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "  ", "", nil); !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
