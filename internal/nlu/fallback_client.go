package nlu

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/patient-intake/pkg/logging"
)

// FallbackLLMClient retries a failed completion on a second provider. A
// caller whose context is already done gets the primary error back.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient wraps primary. A nil fallback disables the retry.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("nlu: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	start := time.Now()
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		c.logger.Debug("llm completion",
			"purpose", req.Purpose,
			"provider", resp.Provider,
			"duration_ms", time.Since(start).Milliseconds(),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)
		return resp, nil
	}
	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary LLM failed, attempting fallback", "purpose", req.Purpose, "error", err)
	resp, fbErr := c.fallback.Complete(ctx, req)
	if fbErr != nil {
		c.logger.Error("fallback LLM also failed", "purpose", req.Purpose, "primary_error", err, "fallback_error", fbErr)
		return LLMResponse{}, errors.Join(err, fbErr)
	}
	return resp, nil
}
