// Package convo provides a high-level façade over the conversation engine
// and its collaborators (completion and moderation clients, tokenizer,
// pricing, session store & logging). Most applications interact with this
// package by:
//  1. Creating a Convo via New() (optionally overriding the default clients)
//  2. Starting conversations with NewConversation
//  3. Prompting them and subscribing to the returned messages' streams
//
// All defaults target the OpenAI API with the API key taken from each
// conversation's config; dry-run conversations never leave the process.
package convo

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/hupe1980/convo/config"
	"github.com/hupe1980/convo/conversation"
	"github.com/hupe1980/convo/core"
	"github.com/hupe1980/convo/logging"
	"github.com/hupe1980/convo/model"
	"github.com/hupe1980/convo/model/openai"
	"github.com/hupe1980/convo/pricing"
	"github.com/hupe1980/convo/session"
	"github.com/hupe1980/convo/tokenizer"
)

// Options configures the Convo instance.
type Options struct {
	// Config holds the base options applied to every new conversation
	// before the per-conversation ones.
	Config []config.Option

	// Client serves live completions (defaults to the OpenAI adapter).
	Client core.ChatCompletionClient
	// Moderator classifies content (defaults to the OpenAI adapter).
	Moderator core.ModerationClient
	// DryModel serves dry-run completions.
	DryModel core.ChatCompletionClient
	// Tokenizer sizes messages (defaults to tiktoken).
	Tokenizer core.Tokenizer
	// Pricing prices messages.
	Pricing core.Pricer
	// Request holds default request options for every external call.
	Request core.RequestOptions

	// RequestsPerSecond throttles live completions when positive.
	RequestsPerSecond float64
	// Burst is the limiter bucket size (defaults to 1).
	Burst int
	// MaxCalls caps the number of live completions when positive.
	MaxCalls int

	// Store keeps live conversations (defaults to an in-memory store).
	Store session.Store

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Convo is the high-level façade creating and tracking conversations.
type Convo struct {
	opts   Options
	client core.ChatCompletionClient
}

// New creates a new Convo instance with optional overrides.
func New(optFns ...func(o *Options)) *Convo {
	opts := Options{
		DryModel: model.NewDryModel(),
		Pricing:  pricing.Default,
		Store:    session.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
		Burst:    1,
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Client == nil || opts.Moderator == nil {
		oa := openai.NewClient()
		if opts.Client == nil {
			opts.Client = oa
		}
		if opts.Moderator == nil {
			opts.Moderator = oa
		}
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.NewTiktoken(func(o *tokenizer.TiktokenOptions) {
			o.Logger = logging.With(opts.Logger, "component", "tokenizer")
		})
	}

	client := opts.Client
	if opts.RequestsPerSecond > 0 || opts.MaxCalls > 0 {
		var limiter *rate.Limiter
		if opts.RequestsPerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
		}
		client = model.NewRateLimitedClient(client, limiter, func(o *model.RateLimitOptions) {
			o.MaxCalls = opts.MaxCalls
		})
	}

	return &Convo{opts: opts, client: client}
}

// NewConversation creates and stores a conversation. cfgOpts are applied on
// top of the defaults and the base options.
func (cv *Convo) NewConversation(ctx context.Context, cfgOpts ...config.Option) (*conversation.Conversation, error) {
	opts := append(append([]config.Option{}, cv.opts.Config...), cfgOpts...)
	cfg, err := config.FromReplace(opts...)
	if err != nil {
		return nil, err
	}

	c, err := conversation.New(ctx, cfg, func(o *conversation.Options) {
		o.Client = cv.client
		o.Moderator = cv.opts.Moderator
		o.DryModel = cv.opts.DryModel
		o.Tokenizer = cv.opts.Tokenizer
		o.Pricing = cv.opts.Pricing
		o.Request = cv.opts.Request
		o.Logger = cv.opts.Logger
	})
	if err != nil {
		return nil, err
	}
	if err := cv.opts.Store.Save(c); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}
	cv.opts.Logger.Info("conversation started", "conversation_id", c.ID(), "model", cfg.Model, "dry", cfg.Dry)
	return c, nil
}

// Conversation returns a stored conversation.
func (cv *Convo) Conversation(id string) (*conversation.Conversation, error) {
	return cv.opts.Store.Get(id)
}

// DeleteConversation removes a conversation and aborts its streams.
func (cv *Convo) DeleteConversation(id string) error {
	c, err := cv.opts.Store.Delete(id)
	if err != nil {
		return err
	}
	return c.Close()
}

// Conversations returns the ids of every stored conversation.
func (cv *Convo) Conversations() ([]string, error) {
	return cv.opts.Store.List()
}
