package intake

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the wire representation sent to the model provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// StreamChunk is one increment of a streamed completion. Done is set on the
// final chunk; Error is set when the stream terminated abnormally.
type StreamChunk struct {
	Text  string
	Done  bool
	Usage TokenUsage
	Error error
}

// LLMClient produces a full completion in one call.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// StreamingLLMClient produces a completion as a chunk stream.
type StreamingLLMClient interface {
	LLMClient
	CompleteStream(ctx context.Context, req LLMRequest) (<-chan StreamChunk, error)
}
