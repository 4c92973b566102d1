package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/convo/core"
)

// MockModel is a lightweight in‑memory client useful for tests & examples.
// It implements core.ChatCompletionClient and core.ModerationClient.
type MockModel struct {
	mu        sync.Mutex
	responses map[string]string
	flags     map[string][]string
	err       error
	streamErr error
	requests  []core.CompletionRequest
	moderated []string
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{
		responses: make(map[string]string),
		flags:     make(map[string][]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddFlags makes Moderate report flags for content.
func (m *MockModel) AddFlags(content string, flags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[content] = flags
}

// SetError makes every subsequent request fail with err before any content
// is produced. A nil err restores normal operation.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetStreamError makes streams fail with err after all deltas were sent.
func (m *MockModel) SetStreamError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = err
}

// Requests returns a copy of every completion request received.
func (m *MockModel) Requests() []core.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.CompletionRequest(nil), m.requests...)
}

// Moderated returns every content passed to Moderate.
func (m *MockModel) Moderated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.moderated...)
}

func (m *MockModel) record(req core.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	input := req.LastContent()
	full, ok := m.responses[input]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", input)
	}
	return full, nil
}

// CreateChatCompletion implements core.ChatCompletionClient.
func (m *MockModel) CreateChatCompletion(ctx context.Context, req core.CompletionRequest) (*core.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := m.record(req)
	if err != nil {
		return nil, err
	}
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(strings.Fields(msg.Content))
	}
	completion := len(strings.Fields(full))
	return &core.CompletionResponse{
		ID:           core.NewID(),
		Content:      full,
		FinishReason: "stop",
		Usage: &core.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// CreateChatCompletionStream implements core.ChatCompletionClient; it emits
// the completion one rune at a time.
func (m *MockModel) CreateChatCompletionStream(ctx context.Context, req core.CompletionRequest) (*core.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := m.record(req)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	streamErr := m.streamErr
	m.mu.Unlock()

	deltas := make(chan string, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(deltas)
		for _, r := range full {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case deltas <- string(r):
			}
		}
		if streamErr != nil {
			errs <- streamErr
		}
	}()
	return core.NewStream(deltas, errs), nil
}

// Moderate implements core.ModerationClient.
func (m *MockModel) Moderate(ctx context.Context, content, _ string, _ core.RequestOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moderated = append(m.moderated, content)
	if m.err != nil {
		return nil, m.err
	}
	return append([]string(nil), m.flags[content]...), nil
}
