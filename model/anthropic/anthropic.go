// Package anthropic implements core.ChatCompletionClient on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/convo/core"
)

// DefaultMaxTokens is sent when the request carries no max_tokens param.
const DefaultMaxTokens = 4096

// Options configure the Anthropic adapter.
type Options struct {
	MaxTokens int64
	APIKey    string
}

// Client wraps the Anthropic SDK client.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// NewClient creates a new adapter using the official client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		MaxTokens: DefaultMaxTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Client{client: &client, opts: opts}
}

// NewClientFromClient creates a new adapter from an existing SDK client.
func NewClientFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		MaxTokens: DefaultMaxTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// CreateChatCompletion performs a non-streaming completion.
func (c *Client) CreateChatCompletion(ctx context.Context, req core.CompletionRequest) (*core.CompletionResponse, error) {
	params, opts := c.buildParams(req)
	resp, err := c.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return &core.CompletionResponse{
		ID:           resp.ID,
		Content:      text.String(),
		FinishReason: finishReason,
		Usage: &core.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// CreateChatCompletionStream opens a streaming completion and forwards the
// text deltas.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req core.CompletionRequest) (*core.Stream, error) {
	params, opts := c.buildParams(req)
	stream := c.client.Messages.NewStreaming(ctx, params, opts...)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	deltas := make(chan string, 32)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(deltas)
		defer stream.Close()
		for stream.Next() {
			ev, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			td, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || td.Text == "" {
				continue
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case deltas <- td.Text:
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("anthropic streaming error: %w", err)
		}
	}()
	return core.NewStream(deltas, errs), nil
}

// buildParams converts the request into Anthropic parameters. The system
// message is lifted into System; max_tokens and temperature params are
// mapped onto their typed fields, any other param is set on the JSON body.
func (c *Client) buildParams(req core.CompletionRequest) (anthropic.MessageNewParams, []option.RequestOption) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: c.opts.MaxTokens,
	}

	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case core.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	var opts []option.RequestOption
	if req.APIKey != "" {
		opts = append(opts, option.WithAPIKey(req.APIKey))
	}
	if req.Options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(req.Options.BaseURL))
	}
	if req.Options.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(req.Options.Timeout))
	}
	for _, k := range slices.Sorted(maps.Keys(req.Options.Headers)) {
		opts = append(opts, option.WithHeader(k, req.Options.Headers[k]))
	}

	for _, k := range slices.Sorted(maps.Keys(req.Params)) {
		v := req.Params[k]
		switch k {
		case "max_tokens":
			if n, ok := toInt64(v); ok {
				params.MaxTokens = n
				continue
			}
		case "temperature":
			if f, ok := toFloat64(v); ok {
				params.Temperature = anthropic.Float(f)
				continue
			}
		}
		opts = append(opts, option.WithJSONSet(k, v))
	}
	return params, opts
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
