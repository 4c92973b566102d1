package model

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hupe1980/convo/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.ChatCompletionClient = (*MockModel)(nil)
	_ core.ModerationClient     = (*MockModel)(nil)
	_ core.ChatCompletionClient = (*DryModel)(nil)
	_ core.ChatCompletionClient = (*RateLimitedClient)(nil)
)

func request(contents ...string) core.CompletionRequest {
	req := core.CompletionRequest{Model: "m"}
	for _, c := range contents {
		req.Messages = append(req.Messages, core.ChatMessage{Role: core.RoleUser, Content: c})
	}
	return req
}

func collect(t *testing.T, s *core.Stream) ([]string, error) {
	t.Helper()
	var chunks []string
	for d := range s.Deltas {
		chunks = append(chunks, d)
	}
	return chunks, <-s.Errs
}

func TestMockModel_CannedAndDefaultResponses(t *testing.T) {
	m := NewMockModel()
	m.AddResponse("hi", "hello there")

	resp, err := m.CreateChatCompletion(context.Background(), request("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, core.TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}, *resp.Usage)

	resp, err = m.CreateChatCompletion(context.Background(), request("other"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Content)
	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_StreamEmitsRunes(t *testing.T) {
	m := NewMockModel()
	m.AddResponse("q", "añb")

	s, err := m.CreateChatCompletionStream(context.Background(), request("q"))
	require.NoError(t, err)
	chunks, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ñ", "b"}, chunks)
}

func TestMockModel_Errors(t *testing.T) {
	m := NewMockModel()
	boom := errors.New("boom")
	m.SetError(boom)

	_, err := m.CreateChatCompletion(context.Background(), request("q"))
	assert.ErrorIs(t, err, boom)
	_, err = m.CreateChatCompletionStream(context.Background(), request("q"))
	assert.ErrorIs(t, err, boom)

	m.SetError(nil)
	m.SetStreamError(boom)
	s, err := m.CreateChatCompletionStream(context.Background(), request("q"))
	require.NoError(t, err)
	_, err = collect(t, s)
	assert.ErrorIs(t, err, boom)
}

func TestMockModel_Moderate(t *testing.T) {
	m := NewMockModel()
	m.AddFlags("bad words", "harassment", "hate")

	flags, err := m.Moderate(context.Background(), "bad words", "k", core.RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"harassment", "hate"}, flags)

	flags, err = m.Moderate(context.Background(), "fine", "k", core.RequestOptions{})
	require.NoError(t, err)
	assert.Empty(t, flags)
	assert.Equal(t, []string{"bad words", "fine"}, m.Moderated())
}

func fastDry() *DryModel {
	return NewDryModel(func(o *DryOptions) {
		o.Delay = time.Millisecond
		o.ChunkDelay = 0
	})
}

func TestDryModel_BatchedEchoes(t *testing.T) {
	resp, err := fastDry().CreateChatCompletion(context.Background(), request("first", "Hello world"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Content)
}

func TestDryModel_BatchedHonorsContext(t *testing.T) {
	d := NewDryModel(func(o *DryOptions) { o.Delay = time.Hour })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.CreateChatCompletion(ctx, request("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDryModel_StreamPreservesWhitespace(t *testing.T) {
	s, err := fastDry().CreateChatCompletionStream(context.Background(), request("Hello  brave new world"))
	require.NoError(t, err)
	chunks, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello ", " ", "brave ", "new ", "world"}, chunks)
	assert.Equal(t, "Hello  brave new world", strings.Join(chunks, ""))
}

func TestDryModel_StreamEmpty(t *testing.T) {
	s, err := fastDry().CreateChatCompletionStream(context.Background(), core.CompletionRequest{})
	require.NoError(t, err)
	chunks, err := collect(t, s)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDryModel_Defaults(t *testing.T) {
	d := NewDryModel()
	assert.Equal(t, DefaultDryDelay, d.opts.Delay)
	assert.Equal(t, DefaultDryChunkDelay, d.opts.ChunkDelay)
}

func TestRateLimitedClient_MaxCalls(t *testing.T) {
	c := NewRateLimitedClient(NewMockModel(), nil, func(o *RateLimitOptions) { o.MaxCalls = 2 })
	assert.Equal(t, 2, c.Remaining())

	_, err := c.CreateChatCompletion(context.Background(), request("a"))
	require.NoError(t, err)
	_, err = c.CreateChatCompletionStream(context.Background(), request("b"))
	require.NoError(t, err)
	_, err = c.CreateChatCompletion(context.Background(), request("c"))
	assert.ErrorContains(t, err, "exceeded max model calls: 2")

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 0, c.Remaining())
}

func TestRateLimitedClient_Unlimited(t *testing.T) {
	c := NewRateLimitedClient(NewMockModel(), rate.NewLimiter(rate.Inf, 1))
	assert.Equal(t, -1, c.Remaining())
	for i := 0; i < 5; i++ {
		_, err := c.CreateChatCompletion(context.Background(), request("a"))
		require.NoError(t, err)
	}
}

func TestRateLimitedClient_WaitHonorsContext(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	c := NewRateLimitedClient(NewMockModel(), limiter)

	_, err := c.CreateChatCompletion(context.Background(), request("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.CreateChatCompletion(ctx, request("b"))
	assert.ErrorContains(t, err, "rate limit")
}
