package convo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/convo/config"
	"github.com/hupe1980/convo/internal/testutil"
	"github.com/hupe1980/convo/model"
	"github.com/hupe1980/convo/session"
)

func newTestConvo(mock *model.MockModel, optFns ...func(o *Options)) *Convo {
	return New(append([]func(o *Options){func(o *Options) {
		o.Client = mock
		o.Moderator = mock
		o.Tokenizer = testutil.WordTokenizer{}
		o.DryModel = model.NewDryModel(func(d *model.DryOptions) { d.Delay = 0; d.ChunkDelay = 0 })
	}}, optFns...)...)
}

func TestConvo_ConversationLifecycle(t *testing.T) {
	mock := model.NewMockModel()
	cv := newTestConvo(mock, func(o *Options) {
		o.Config = []config.Option{config.WithAPIKey("sk-test"), config.WithContext("be brief")}
	})
	ctx := context.Background()

	a, err := cv.NewConversation(ctx)
	require.NoError(t, err)
	b, err := cv.NewConversation(ctx, config.WithContext(""))
	require.NoError(t, err)

	assert.Len(t, a.Messages(true), 1)
	assert.Empty(t, b.Messages(true))

	got, err := cv.Conversation(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	ids, err := cv.Conversations()
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID(), b.ID()}, ids)

	resp, err := a.Prompt(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hi", resp.Content())

	require.NoError(t, cv.DeleteConversation(a.ID()))
	_, err = cv.Conversation(a.ID())
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, cv.DeleteConversation(a.ID()), session.ErrNotFound)
}

func TestConvo_InvalidConfig(t *testing.T) {
	cv := newTestConvo(model.NewMockModel())
	_, err := cv.NewConversation(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	ids, err := cv.Conversations()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestConvo_DryRunUsesDryModel(t *testing.T) {
	mock := model.NewMockModel()
	cv := newTestConvo(mock)

	c, err := cv.NewConversation(context.Background(), config.WithDry(true))
	require.NoError(t, err)
	resp, err := c.Prompt(context.Background(), "echo me")
	require.NoError(t, err)
	assert.Equal(t, "echo me", resp.Content())
	assert.Empty(t, mock.Requests())
}

func TestConvo_MaxCalls(t *testing.T) {
	mock := model.NewMockModel()
	cv := newTestConvo(mock, func(o *Options) { o.MaxCalls = 1 })
	_, ok := cv.client.(*model.RateLimitedClient)
	require.True(t, ok)

	c, err := cv.NewConversation(context.Background(), config.WithAPIKey("k"))
	require.NoError(t, err)
	_, err = c.Prompt(context.Background(), "one")
	require.NoError(t, err)
	_, err = c.Prompt(context.Background(), "two")
	assert.ErrorContains(t, err, "exceeded max model calls")
	assert.Len(t, c.Messages(true), 2)
}

func TestConvo_Defaults(t *testing.T) {
	cv := New()
	assert.NotNil(t, cv.opts.Client)
	assert.NotNil(t, cv.opts.Moderator)
	assert.NotNil(t, cv.opts.Tokenizer)
	assert.NotNil(t, cv.opts.Store)
	assert.Same(t, cv.opts.Client, cv.client)
}
