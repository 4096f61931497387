package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockLLMClient runs completions through the Bedrock Converse API at
// temperature 0.
type BedrockLLMClient struct {
	api bedrockConverseAPI
}

func NewBedrockLLMClient(api bedrockConverseAPI) *BedrockLLMClient {
	if api == nil {
		panic("nlu: bedrock converse client cannot be nil")
	}
	return &BedrockLLMClient{api: api}
}

func (c *BedrockLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("nlu: bedrock model id is required")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return LLMResponse{}, errors.New("nlu: bedrock prompt is empty")
	}

	var system []brtypes.SystemContentBlock
	if s := strings.TrimSpace(req.System); s != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: s})
	}
	if req.JSON {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: jsonOnlyInstruction})
	}

	inference := &brtypes.InferenceConfiguration{Temperature: aws.Float32(0)}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		System:  system,
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: inference,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("nlu: bedrock %s: %w", req.Purpose, err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return LLMResponse{}, ErrEmptyCompletion
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return LLMResponse{}, ErrEmptyCompletion
	}

	resp := LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		Provider:   "bedrock",
		StopReason: string(out.StopReason),
	}
	if u := out.Usage; u != nil {
		resp.InputTokens = aws.ToInt32(u.InputTokens)
		resp.OutputTokens = aws.ToInt32(u.OutputTokens)
	}
	return resp, nil
}
