package conversation

import (
	"maps"

	"github.com/hupe1980/convo/core"
	"github.com/hupe1980/convo/logging"
	"github.com/hupe1980/convo/model"
	"github.com/hupe1980/convo/pricing"
	"github.com/hupe1980/convo/tokenizer"
)

// Options configure the collaborators of a Conversation.
type Options struct {
	// Client serves live completions. Required unless the config is dry.
	Client core.ChatCompletionClient
	// Moderator classifies content when moderation is enabled.
	Moderator core.ModerationClient
	// DryModel serves completions in dry-run mode.
	DryModel core.ChatCompletionClient
	// Tokenizer sizes messages.
	Tokenizer core.Tokenizer
	// Pricing prices messages.
	Pricing core.Pricer
	// Request holds default request options for every external call.
	Request core.RequestOptions
	Logger  logging.Logger
}

func defaultOptions() Options {
	return Options{
		DryModel:  model.NewDryModel(),
		Tokenizer: tokenizer.NewEstimator(),
		Pricing:   pricing.Default,
		Logger:    logging.NoOpLogger{},
	}
}

// PromptOptions override the config for a single completion request.
type PromptOptions struct {
	// Stream overrides the config's streaming preference when set.
	Stream *bool
	// Params are merged over the config params.
	Params map[string]any
	// Request is merged over the conversation's default request options.
	Request core.RequestOptions
}

// WithStream forces a streamed (true) or batched (false) response.
func WithStream(stream bool) func(o *PromptOptions) {
	return func(o *PromptOptions) { o.Stream = &stream }
}

// WithParam sets a single request parameter for this call.
func WithParam(key string, value any) func(o *PromptOptions) {
	return func(o *PromptOptions) {
		if o.Params == nil {
			o.Params = map[string]any{}
		}
		o.Params[key] = value
	}
}

// WithRequestOptions overrides request options for this call.
func WithRequestOptions(ro core.RequestOptions) func(o *PromptOptions) {
	return func(o *PromptOptions) { o.Request = ro }
}

// mergeRequestOptions lays override over base. Headers are merged key by key.
func mergeRequestOptions(base, override core.RequestOptions) core.RequestOptions {
	out := base
	if len(base.Headers) > 0 || len(override.Headers) > 0 {
		out.Headers = maps.Clone(base.Headers)
		if out.Headers == nil {
			out.Headers = map[string]string{}
		}
		maps.Copy(out.Headers, override.Headers)
	}
	if override.Timeout > 0 {
		out.Timeout = override.Timeout
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	return out
}
