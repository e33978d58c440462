package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"resume-matcher/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini API with a constrained JSON response.
type Client struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

// NewClient creates a Client configured for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, llm.ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, model, logger), nil
}

func newClient(models contentGenerator, model string, logger *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{models: models, model: model, logger: logger}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// AnalyzeResume sends a single GenerateContent request and returns the raw text payload.
func (c *Client) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	prompt := llm.BuildPrompt(input.ResumeText, input.JobDescription)
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), generateConfig())
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	fields := []zap.Field{zap.String("ai_model", c.model), zap.Int("response_bytes", len(text))}
	if resp.UsageMetadata != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("candidates_tokens", resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	c.logger.Debug("gemini.response", fields...)

	return json.RawMessage(text), nil
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: llm.SystemInstruction}},
		},
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
}

// ResponseSchema translates llm.ResultFields into the provider's schema type.
func ResponseSchema() *genai.Schema {
	props := make(map[string]*genai.Schema, len(llm.ResultFields))
	for _, f := range llm.ResultFields {
		var s *genai.Schema
		switch f.Kind {
		case llm.FieldInteger:
			s = &genai.Schema{
				Type:    genai.TypeInteger,
				Minimum: genai.Ptr[float64](llm.ScoreMin),
				Maximum: genai.Ptr[float64](llm.ScoreMax),
			}
		case llm.FieldString:
			s = &genai.Schema{Type: genai.TypeString}
		case llm.FieldStringArray:
			s = &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
		}
		s.Description = f.Description
		props[f.Name] = s
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         llm.FieldNames(),
		PropertyOrdering: llm.FieldNames(),
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}
		if builder.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(builder.String())
}

var _ llm.Client = (*Client)(nil)
