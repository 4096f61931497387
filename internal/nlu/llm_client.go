// Package nlu holds the text-understanding collaborators: intent and patient
// status classification and model-backed slot extraction.
package nlu

import (
	"context"
	"errors"
)

// LLMRequest is a single-turn completion. Instructions go in System and the
// patient's words in Prompt, so a reply can never rewrite the instructions.
type LLMRequest struct {
	Model string
	// Purpose labels the call in logs: "extract", "intent" or "status".
	Purpose   string
	System    string
	Prompt    string
	MaxTokens int32
	// JSON asks the provider for a single JSON object.
	JSON bool
}

type LLMResponse struct {
	Text         string
	Provider     string
	StopReason   string
	InputTokens  int32
	OutputTokens int32
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ErrEmptyCompletion means the provider answered without any text.
var ErrEmptyCompletion = errors.New("nlu: model returned no text")

const jsonOnlyInstruction = "Respond with a single JSON object and nothing else."
