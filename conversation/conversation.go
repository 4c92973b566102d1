package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/convo/config"
	"github.com/hupe1980/convo/core"
	"github.com/hupe1980/convo/logging"
)

// Conversation is an ordered chat history bound to a config.
type Conversation struct {
	id     string
	opts   Options
	logger logging.Logger

	// ctx is cancelled by Close and bounds every stream.
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.RWMutex
	cfg            *config.Config
	messages       []*core.Message
	cumulativeSize int
	cumulativeCost float64

	added   *core.Listeners[*core.Message]
	removed *core.Listeners[*core.Message]
}

// New creates a conversation for cfg and admits its context message, if
// any. cfg is validated and copied.
func New(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Conversation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	id := core.NewID()
	lifetime, cancel := context.WithCancel(context.Background())
	c := &Conversation{
		id:      id,
		opts:    opts,
		logger:  logging.With(opts.Logger, "component", "conversation", "conversation_id", id),
		ctx:     lifetime,
		cancel:  cancel,
		cfg:     cfg.Clone(),
		added:   core.NewListeners[*core.Message](),
		removed: core.NewListeners[*core.Message](),
	}
	if strings.TrimSpace(cfg.Context) != "" {
		if err := c.SetContext(ctx, cfg.Context); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to add context: %w", err)
		}
	}
	c.logger.Debug("conversation created", "config", c.cfg)
	return c, nil
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Config returns a copy of the current config.
func (c *Conversation) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Clone()
}

// SetConfig replaces (merge == false) or merges (merge == true) the config.
// An invalid result leaves the conversation untouched. The context message
// follows the new config's context.
func (c *Conversation) SetConfig(ctx context.Context, merge bool, opts ...config.Option) error {
	c.mu.RLock()
	prev := c.cfg
	c.mu.RUnlock()

	var (
		next *config.Config
		err  error
	)
	if merge {
		next, err = config.FromMerge(prev, opts...)
	} else {
		next, err = config.FromReplace(opts...)
	}
	if err != nil {
		return fmt.Errorf("set config: %w", err)
	}

	c.mu.Lock()
	c.cfg = next
	current := c.contextLocked()
	c.mu.Unlock()

	if strings.TrimSpace(next.Context) != current {
		if err := c.SetContext(ctx, next.Context); err != nil {
			c.mu.Lock()
			c.cfg = prev
			c.mu.Unlock()
			return fmt.Errorf("set config: %w", err)
		}
	}
	c.logger.Debug("config updated", "merge", merge, "config", next)
	return nil
}

// SetContext sets (or, when text is empty, removes) the system message.
func (c *Conversation) SetContext(ctx context.Context, text string) error {
	return c.AddMessage(ctx, c.newMessage(core.RoleSystem, text))
}

// Messages returns a snapshot of the history. The context message is only
// included when includeContext is true.
func (c *Conversation) Messages(includeContext bool) []*core.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := c.messages
	if !includeContext && c.hasContextLocked() {
		msgs = msgs[1:]
	}
	out := make([]*core.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Message returns the message with the given id.
func (c *Conversation) Message(id string) (*core.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("message %s: %w", id, core.ErrMessageNotFound)
	}
	return c.messages[idx], nil
}

// Size returns the token count of the current history.
func (c *Conversation) Size() int {
	size := 0
	for _, m := range c.Messages(true) {
		size += m.Size()
	}
	return size
}

// Cost returns the estimated cost of the current history.
func (c *Conversation) Cost() float64 {
	cost := 0.0
	for _, m := range c.Messages(true) {
		cost += m.Cost()
	}
	return cost
}

// CumulativeSize returns the tokens of every completed request so far.
func (c *Conversation) CumulativeSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cumulativeSize
}

// CumulativeCost returns the estimated cost of every completed request so far.
func (c *Conversation) CumulativeCost() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cumulativeCost
}

// OnMessageAdded subscribes fn to admitted messages.
func (c *Conversation) OnMessageAdded(fn func(*core.Message)) core.ListenerID {
	return c.added.Add(fn)
}

// OffMessageAdded removes an added-message subscription.
func (c *Conversation) OffMessageAdded(id core.ListenerID) bool { return c.added.Remove(id) }

// OnMessageRemoved subscribes fn to removed messages.
func (c *Conversation) OnMessageRemoved(fn func(*core.Message)) core.ListenerID {
	return c.removed.Add(fn)
}

// OffMessageRemoved removes a removed-message subscription.
func (c *Conversation) OffMessageRemoved(id core.ListenerID) bool { return c.removed.Remove(id) }

// Close aborts every in-flight stream. A closed conversation keeps its
// history but serves no further completions.
func (c *Conversation) Close() error {
	c.cancel()
	c.logger.Debug("conversation closed")
	return nil
}

func (c *Conversation) newMessage(role core.Role, content string) *core.Message {
	c.mu.RLock()
	model := c.cfg.Model
	c.mu.RUnlock()
	return core.NewMessage(role, content, model, c.messageOptions)
}

func (c *Conversation) messageOptions(o *core.MessageOptions) {
	o.Tokenizer = c.opts.Tokenizer
	o.Pricing = c.opts.Pricing
}

func (c *Conversation) hasContextLocked() bool {
	return len(c.messages) > 0 && c.messages[0].Role() == core.RoleSystem
}

func (c *Conversation) contextLocked() string {
	if !c.hasContextLocked() {
		return ""
	}
	return c.messages[0].Content()
}

func (c *Conversation) indexLocked(id string) int {
	for i, m := range c.messages {
		if m.ID() == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) historyLocked() core.History {
	h := core.History{HasContext: c.hasContextLocked()}
	if n := len(c.messages); n > 0 {
		h.HasLast = true
		h.LastRole = c.messages[n-1].Role()
	}
	return h
}
