// Package llmclient implements the Completion Client (C5) from spec.md
// §4.5: chat-completions (streaming and non-streaming), embeddings, and
// rerank against an OpenAI-compatible remote service, with the retry and
// backoff mechanics grounded on kadirpekel-hector's pkg/httpclient. The
// wire shapes themselves are authored directly from spec.md §4.5/§6 since
// hector's own pkg/llms/openai.go targets OpenAI's newer Responses API,
// not the classic chat/completions/embeddings/rerank shapes this spec
// requires.
package llmclient

import "encoding/json"

// Message is one chat-completions message, per spec.md §6's message shape.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is one function-call request from the model.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the name and raw JSON argument string.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes one callable tool, the `tools` parameter shape.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function-calling schema for one tool.
type ToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ChatRequest is the body sent to POST /chat/completions, per spec.md §6.
type ChatRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature float64    `json:"temperature,omitempty"`
	Stream      bool       `json:"stream,omitempty"`
	Tools       []ToolSpec `json:"tools,omitempty"`
	ToolChoice  any        `json:"tool_choice,omitempty"`
}

// Usage is the token-accounting block on a non-streaming response.
// CacheReadTokens and ReasoningTokens are populated only by providers that
// break out prompt-cache hits or reasoning-token sub-totals, per spec.md
// §4.8 ("accumulate token usage fields including cache-read and reasoning
// sub-totals when provided").
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CacheReadTokens  int `json:"-"`
	ReasoningTokens  int `json:"-"`
}

// usageDetails mirrors the nested shapes different OpenAI-compatible
// providers use for cache-read and reasoning sub-totals.
type usageDetails struct {
	PromptTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
	CompletionTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

// UnmarshalJSON decodes the flat counters plus the nested
// prompt_tokens_details/completion_tokens_details sub-totals some
// providers attach.
func (u *Usage) UnmarshalJSON(data []byte) error {
	type plain Usage
	var flat plain
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	var details usageDetails
	_ = json.Unmarshal(data, &details)

	*u = Usage(flat)
	u.CacheReadTokens = details.PromptTokensDetails.CachedTokens
	u.ReasoningTokens = details.CompletionTokensDetails.ReasoningTokens
	return nil
}

// Choice is one completion choice in a non-streaming response.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the synchronous response body from /chat/completions.
type ChatResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// DeltaToolCall is one tool-call fragment in a streaming chunk, indexed so
// fragments for the same call can be aggregated across chunks.
type DeltaToolCall struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function,omitempty"`
}

// Delta is the incremental content of one streaming chunk's choice.
type Delta struct {
	Content   string          `json:"content,omitempty"`
	ToolCalls []DeltaToolCall `json:"tool_calls,omitempty"`
}

// StreamChoice is one choice within a streaming chunk.
type StreamChoice struct {
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// StreamChunk is one SSE `data: ...` payload from a streaming response.
type StreamChunk struct {
	Choices []StreamChoice `json:"choices"`
}

// EmbeddingRequest is the body sent to POST /embeddings.
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse is the /embeddings response shape, per spec.md §4.5.
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// RerankRequest is the body sent to POST /rerank.
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// RerankResult is one scored document in a rerank response.
type RerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// RerankResponse is the /rerank response shape, results sorted descending
// by score, per spec.md §4.5.
type RerankResponse struct {
	Results []RerankResult `json:"results"`
}
