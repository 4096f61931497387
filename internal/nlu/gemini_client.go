package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiLLMClient runs completions on one Gemini model. The request's Model
// field is ignored; the model is fixed when the client is built.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
}

func NewGeminiLLMClient(ctx context.Context, apiKey, modelID string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("nlu: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("nlu: create gemini client: %w", err)
	}
	return &GeminiLLMClient{client: client, modelID: modelID}, nil
}

func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return LLMResponse{}, errors.New("nlu: gemini prompt is empty")
	}

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if s := strings.TrimSpace(req.System); s != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(s))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("nlu: gemini %s: %w", req.Purpose, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return LLMResponse{}, ErrEmptyCompletion
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return LLMResponse{}, ErrEmptyCompletion
	}

	out := LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		Provider:   "gemini",
		StopReason: candidate.FinishReason.String(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = u.PromptTokenCount
		out.OutputTokens = u.CandidatesTokenCount
	}
	return out, nil
}

func (c *GeminiLLMClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
