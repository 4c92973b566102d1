package model

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/hupe1980/convo/core"
)

// RateLimitOptions configure a RateLimitedClient.
type RateLimitOptions struct {
	// MaxCalls caps the total number of requests. Zero means unlimited.
	MaxCalls int
}

// RateLimitedClient throttles a core.ChatCompletionClient with a token
// bucket and optionally caps the total number of calls.
type RateLimitedClient struct {
	next    core.ChatCompletionClient
	limiter *rate.Limiter
	max     int

	mu    sync.Mutex
	count int
}

// NewRateLimitedClient wraps next. A nil limiter disables throttling.
func NewRateLimitedClient(next core.ChatCompletionClient, limiter *rate.Limiter, optFns ...func(o *RateLimitOptions)) *RateLimitedClient {
	var opts RateLimitOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RateLimitedClient{next: next, limiter: limiter, max: opts.MaxCalls}
}

// CreateChatCompletion implements core.ChatCompletionClient.
func (c *RateLimitedClient) CreateChatCompletion(ctx context.Context, req core.CompletionRequest) (*core.CompletionResponse, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.CreateChatCompletion(ctx, req)
}

// CreateChatCompletionStream implements core.ChatCompletionClient.
func (c *RateLimitedClient) CreateChatCompletionStream(ctx context.Context, req core.CompletionRequest) (*core.Stream, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	return c.next.CreateChatCompletionStream(ctx, req)
}

func (c *RateLimitedClient) acquire(ctx context.Context) error {
	if err := c.increment(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// increment increases the call counter and returns an error if the limit is exceeded.
func (c *RateLimitedClient) increment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max > 0 && c.count >= c.max {
		return fmt.Errorf("exceeded max model calls: %d", c.max)
	}
	c.count++
	return nil
}

// Count returns the number of calls made.
func (c *RateLimitedClient) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Remaining returns how many calls are left, or -1 when unlimited.
func (c *RateLimitedClient) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max == 0 {
		return -1 // unlimited
	}
	return c.max - c.count
}
