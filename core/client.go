package core

import (
	"context"
	"time"
)

// ChatMessage is the role/content projection of a Message sent to a
// completion service.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RequestOptions shape a single call to an external service. They are opaque
// to the conversation and interpreted by the client adapter.
type RequestOptions struct {
	// Headers are added to the outgoing request.
	Headers map[string]string
	// Timeout bounds the request (including retries) when positive.
	Timeout time.Duration
	// BaseURL overrides the service endpoint when non-empty.
	BaseURL string
}

// CompletionRequest is the normalized input of a chat completion.
type CompletionRequest struct {
	Model    string        `json:"model"`
	APIKey   string        `json:"-"`
	Messages []ChatMessage `json:"messages"`
	// Params are forwarded verbatim to the service body (temperature, top_p, ...).
	Params  map[string]any `json:"params,omitempty"`
	Options RequestOptions `json:"-"`
}

// LastContent returns the content of the final message, or "".
func (r CompletionRequest) LastContent() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// TokenUsage captures service-reported token usage statistics.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is a complete (non-streamed) chat completion.
type CompletionResponse struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", ...
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Stream is a live sequence of content deltas. The producer closes Deltas
// when the response ends and reports a failure (if any) on Errs before
// closing it. Errs is buffered so the producer never blocks on it.
type Stream struct {
	Deltas <-chan string
	Errs   <-chan error
}

// NewStream bundles producer channels into a Stream.
func NewStream(deltas <-chan string, errs <-chan error) *Stream {
	return &Stream{Deltas: deltas, Errs: errs}
}

// ChatCompletionClient sends role/content pairs to a language model service.
type ChatCompletionClient interface {
	// CreateChatCompletion waits for the full response.
	CreateChatCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// CreateChatCompletionStream returns as soon as the service accepted the
	// request; content arrives on the returned Stream.
	CreateChatCompletionStream(ctx context.Context, req CompletionRequest) (*Stream, error)
}

// ModerationClient classifies content and returns the triggered policy flags.
// An empty result means the content passed.
type ModerationClient interface {
	Moderate(ctx context.Context, content, apiKey string, opts RequestOptions) ([]string, error)
}

// Tokenizer counts the tokens of text as seen by the given model.
type Tokenizer interface {
	CountTokens(text, model string) int
}

// Pricer estimates the monetary cost (USD) of a number of tokens. output
// selects completion pricing rather than prompt pricing.
type Pricer interface {
	Cost(model string, tokens int, output bool) float64
}
