package testutil

import (
	"github.com/hupe1980/convo/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	m := NewMessageBuilder().User("hello").Model("gpt-4o").Build()
//
// Chain only the parts you need; word counting and flat pricing are the
// defaults so sizes are easy to predict.
type MessageBuilder struct {
	role      core.Role
	content   string
	model     string
	tokenizer core.Tokenizer
	pricing   core.Pricer
}

// NewMessageBuilder creates a builder for a user message on model "test-model".
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		role:      core.RoleUser,
		model:     "test-model",
		tokenizer: WordTokenizer{},
		pricing:   FlatPricer{Input: 0.001, Output: 0.002},
	}
}

// System sets a system role and content (chainable).
func (b *MessageBuilder) System(content string) *MessageBuilder {
	b.role, b.content = core.RoleSystem, content
	return b
}

// User sets a user role and content (chainable).
func (b *MessageBuilder) User(content string) *MessageBuilder {
	b.role, b.content = core.RoleUser, content
	return b
}

// Assistant sets an assistant role and content (chainable).
func (b *MessageBuilder) Assistant(content string) *MessageBuilder {
	b.role, b.content = core.RoleAssistant, content
	return b
}

// Model overrides the model (chainable).
func (b *MessageBuilder) Model(model string) *MessageBuilder { b.model = model; return b }

// Tokenizer overrides the tokenizer (chainable).
func (b *MessageBuilder) Tokenizer(t core.Tokenizer) *MessageBuilder { b.tokenizer = t; return b }

// Pricing overrides the pricer (chainable).
func (b *MessageBuilder) Pricing(p core.Pricer) *MessageBuilder { b.pricing = p; return b }

// Options returns the message options the builder applies.
func (b *MessageBuilder) Options(o *core.MessageOptions) {
	o.Tokenizer = b.tokenizer
	o.Pricing = b.pricing
}

// Build returns a stopped message.
func (b *MessageBuilder) Build() *core.Message {
	return core.NewMessage(b.role, b.content, b.model, b.Options)
}

// BuildStreaming returns an idle assistant message.
func (b *MessageBuilder) BuildStreaming() *core.Message {
	return core.NewStreamingMessage(b.model, b.Options)
}
