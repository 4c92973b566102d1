// Package openai implements core.ChatCompletionClient and
// core.ModerationClient on top of the OpenAI Chat Completions and
// Moderations APIs. It adapts the conversation's role/content pairs into
// the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/convo/core"
)

// DefaultModerationModel classifies content when no model is configured.
const DefaultModerationModel = "omni-moderation-latest"

// Options configure the OpenAI adapter.
type Options struct {
	// ModerationModel is the model used by Moderate.
	ModerationModel string
	// RequestOptions are applied to every call, before the per-request ones.
	RequestOptions []option.RequestOption
}

// Client wraps the OpenAI SDK client.
type Client struct {
	client *openai.Client
	opts   Options
}

// NewClient creates a new adapter using the official client. The API key is
// taken from each request, falling back to the OPENAI_API_KEY environment
// variable read by the SDK.
func NewClient(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewClientFromClient(&client, optFns...)
}

// NewClientFromClient creates a new adapter from an existing SDK client.
func NewClientFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		ModerationModel: DefaultModerationModel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// CreateChatCompletion performs a non-streaming completion.
func (c *Client) CreateChatCompletion(ctx context.Context, req core.CompletionRequest) (*core.CompletionResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, buildParams(req), c.requestOptions(req.APIKey, req.Params, req.Options)...)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	ch0 := resp.Choices[0]
	return &core.CompletionResponse{
		ID:           resp.ID,
		Content:      ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: &core.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// CreateChatCompletionStream opens a streaming completion. A rejected
// request fails here; errors after the first byte arrive on the stream.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req core.CompletionRequest) (*core.Stream, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, buildParams(req), c.requestOptions(req.APIKey, req.Params, req.Options)...)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	deltas := make(chan string, 32)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(deltas)
		defer stream.Close()
		for stream.Next() {
			for _, ch := range stream.Current().Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case deltas <- ch.Delta.Content:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()
	return core.NewStream(deltas, errs), nil
}

// Moderate classifies content and returns the flagged category names in
// sorted order.
func (c *Client) Moderate(ctx context.Context, content, apiKey string, opts core.RequestOptions) ([]string, error) {
	resp, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(content)},
		Model: openai.ModerationModel(c.opts.ModerationModel),
	}, c.requestOptions(apiKey, nil, opts)...)
	if err != nil {
		return nil, fmt.Errorf("openai moderation error: %w", err)
	}
	return flaggedCategories(resp.RawJSON()), nil
}

// flaggedCategories collects every category set to true across all results.
func flaggedCategories(raw string) []string {
	seen := map[string]bool{}
	gjson.Get(raw, "results").ForEach(func(_, result gjson.Result) bool {
		result.Get("categories").ForEach(func(name, flagged gjson.Result) bool {
			if flagged.Bool() {
				seen[name.String()] = true
			}
			return true
		})
		return true
	})
	return slices.Sorted(maps.Keys(seen))
}

func buildParams(req core.CompletionRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: buildMessages(req.Messages),
		Model:    openai.ChatModel(req.Model),
	}
}

// buildMessages converts role/content pairs into OpenAI chat messages.
func buildMessages(msgs []core.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

// requestOptions maps the per-call settings onto SDK request options. Params
// are set on the JSON body in key order.
func (c *Client) requestOptions(apiKey string, params map[string]any, ro core.RequestOptions) []option.RequestOption {
	opts := slices.Clone(c.opts.RequestOptions)
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if ro.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(ro.BaseURL))
	}
	if ro.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(ro.Timeout))
	}
	for _, k := range slices.Sorted(maps.Keys(ro.Headers)) {
		opts = append(opts, option.WithHeader(k, ro.Headers[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(params)) {
		opts = append(opts, option.WithJSONSet(k, params[k]))
	}
	return opts
}
