package conversation

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/hupe1980/convo/config"
	"github.com/hupe1980/convo/core"
)

// charge accounts one completion in the cumulative counters. The prompt
// snapshot is taken when the request is issued; the response is billed once
// it is both admitted and final. A discarded charge is never billed.
type charge struct {
	c        *Conversation
	msg      *core.Message
	snapSize int
	snapCost float64

	mu       sync.Mutex
	admitted bool
	stopped  bool
	settled  bool
}

func (c *Conversation) newCharge() *charge {
	return &charge{c: c, snapSize: c.Size(), snapCost: c.Cost()}
}

func (ch *charge) admit() { ch.mark(func() { ch.admitted = true }) }

func (ch *charge) stop() { ch.mark(func() { ch.stopped = true }) }

func (ch *charge) discard() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.settled = true
}

func (ch *charge) mark(set func()) {
	ch.mu.Lock()
	set()
	ready := ch.admitted && ch.stopped && !ch.settled
	if ready {
		ch.settled = true
	}
	ch.mu.Unlock()
	if ready {
		ch.c.bill(ch.snapSize+ch.msg.Size(), ch.snapCost+ch.msg.Cost())
	}
}

func (c *Conversation) bill(size int, cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cumulativeSize += size
	c.cumulativeCost += cost
}

// client picks the completion client for cfg.
func (c *Conversation) client(cfg *config.Config) (core.ChatCompletionClient, error) {
	if cfg.Dry {
		if c.opts.DryModel == nil {
			return nil, core.ErrNoCompletionClient
		}
		return c.opts.DryModel, nil
	}
	if c.opts.Client == nil {
		return nil, core.ErrNoCompletionClient
	}
	return c.opts.Client, nil
}

func (c *Conversation) buildRequest(cfg *config.Config, po PromptOptions) core.CompletionRequest {
	history := c.Messages(true)
	msgs := make([]core.ChatMessage, len(history))
	for i, m := range history {
		msgs[i] = m.ChatMessage()
	}
	params := maps.Clone(cfg.Params)
	if params == nil {
		params = map[string]any{}
	}
	maps.Copy(params, po.Params)
	return core.CompletionRequest{
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		Messages: msgs,
		Params:   params,
		Options:  mergeRequestOptions(c.opts.Request, po.Request),
	}
}

// chatCompletion requests a response for the current history. The returned
// message is not yet admitted.
func (c *Conversation) chatCompletion(ctx context.Context, optFns []func(o *PromptOptions)) (*core.Message, *charge, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, nil, core.ErrConversationClosed
	}

	var po PromptOptions
	for _, fn := range optFns {
		fn(&po)
	}

	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	stream := cfg.Stream
	if po.Stream != nil {
		stream = *po.Stream
	}

	client, err := c.client(cfg)
	if err != nil {
		return nil, nil, err
	}
	req := c.buildRequest(cfg, po)
	ch := c.newCharge()

	if stream {
		msg, err := c.streamed(ctx, cfg, client, req, ch)
		return msg, ch, err
	}
	msg, err := c.batched(ctx, cfg, client, req, ch)
	return msg, ch, err
}

func (c *Conversation) batched(ctx context.Context, cfg *config.Config, client core.ChatCompletionClient, req core.CompletionRequest, ch *charge) (*core.Message, error) {
	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("chat completion failed", "model", cfg.Model, "stream", false, "dry", cfg.Dry, "duration", time.Since(start), "success", false, "error", err)
		return nil, core.WrapTransport("chat completion", err)
	}

	msg := core.NewMessage(core.RoleAssistant, "", cfg.Model, c.messageOptions)
	if err := msg.SetContent(resp.Content); err != nil {
		return nil, err
	}

	args := []any{"model", cfg.Model, "stream", false, "dry", cfg.Dry, "duration", time.Since(start), "success", true, "estimated_tokens", msg.Size()}
	if u := resp.Usage; u != nil {
		args = append(args, "prompt_tokens", u.PromptTokens, "completion_tokens", u.CompletionTokens, "total_tokens", u.TotalTokens)
	}
	c.logger.Debug("chat completion", args...)
	ch.msg = msg
	ch.stop()
	return msg, nil
}

func (c *Conversation) streamed(ctx context.Context, cfg *config.Config, client core.ChatCompletionClient, req core.CompletionRequest, ch *charge) (*core.Message, error) {
	msg := core.NewStreamingMessage(cfg.Model, c.messageOptions)
	ch.msg = msg

	streamCtx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.ctx, cancel)

	start := time.Now()
	s, err := client.CreateChatCompletionStream(streamCtx, req)
	if err != nil {
		stopAfter()
		cancel()
		c.logger.Error("chat completion failed", "model", cfg.Model, "stream", true, "dry", cfg.Dry, "duration", time.Since(start), "success", false, "error", err)
		return nil, core.WrapTransport("chat completion stream", err)
	}

	msg.OnceStreamingStop(func(m *core.Message) {
		if err := m.Err(); err != nil {
			c.logger.Error("chat completion stream ended", "model", cfg.Model, "stream", true, "dry", cfg.Dry, "duration", time.Since(start), "success", false, "error", err)
		} else {
			c.logger.Debug("chat completion", "model", cfg.Model, "stream", true, "dry", cfg.Dry, "duration", time.Since(start), "success", true)
		}
		ch.stop()
	})

	go func() {
		defer cancel()
		defer stopAfter()
		_ = msg.ReadContentFromStream(streamCtx, s)
	}()
	return msg, nil
}
