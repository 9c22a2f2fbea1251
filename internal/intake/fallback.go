package intake

import (
	"context"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// FallbackLLMClient wraps a streaming primary with a non-streaming fallback
// provider. When the primary stream cannot be established the fallback's
// full completion is delivered as a single chunk, so consumers keep the same
// contract either way.
type FallbackLLMClient struct {
	primary  StreamingLLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a fallback-enabled LLM client. If fallback is
// nil, only the primary provider is used.
func NewFallbackLLMClient(primary StreamingLLMClient, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("intake: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Complete tries the primary, then the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// CompleteStream streams from the primary. If the stream cannot be opened at
// all, the fallback completion arrives as one terminal chunk. Failures after
// the stream has started are passed through untouched; the turn is the
// caller's to retry.
func (c *FallbackLLMClient) CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error) {
	chunks, err := c.primary.CompleteStream(ctx, req)
	if err == nil {
		return chunks, nil
	}

	c.logger.Warn("primary LLM stream failed to open, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return nil, err
	}

	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return nil, fallbackErr
	}

	out := make(chan StreamChunk, 2)
	out <- StreamChunk{Text: resp.Text}
	out <- StreamChunk{Done: true, Usage: resp.Usage}
	close(out)
	return out, nil
}
