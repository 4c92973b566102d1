package conversation

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/convo/config"
	"github.com/hupe1980/convo/core"
)

// AddUserMessage admits a user message with the given content.
func (c *Conversation) AddUserMessage(ctx context.Context, content string) (*core.Message, error) {
	m := c.newMessage(core.RoleUser, content)
	if err := c.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddAssistantMessage admits an assistant message with the given content.
func (c *Conversation) AddAssistantMessage(ctx context.Context, content string) (*core.Message, error) {
	m := c.newMessage(core.RoleAssistant, content)
	if err := c.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AddMessage admits m into the history. Every admission path flows through
// here: the content is trimmed, moderated when enabled and placed according
// to its role. Subscribers are notified after the history was updated.
func (c *Conversation) AddMessage(ctx context.Context, m *core.Message) error {
	if m.State() == core.StateStopped {
		if err := m.SetContent(m.Content()); err != nil {
			return err
		}
	}
	content := m.Content()
	empty := content == ""
	if m.Role() == core.RoleUser && empty {
		return core.ErrEmptyUserContent
	}

	c.mu.RLock()
	cfg := c.cfg
	duplicate := c.indexLocked(m.ID()) >= 0
	c.mu.RUnlock()
	if duplicate {
		return fmt.Errorf("add message %s: %w", m.ID(), core.ErrDuplicateMessage)
	}

	if err := c.moderate(ctx, cfg, m); err != nil {
		return err
	}

	c.mu.Lock()
	if c.indexLocked(m.ID()) >= 0 {
		c.mu.Unlock()
		return fmt.Errorf("add message %s: %w", m.ID(), core.ErrDuplicateMessage)
	}
	action, err := core.Admit(m.Role(), empty, c.historyLocked())
	if err != nil {
		c.mu.Unlock()
		return err
	}

	var replaced *core.Message
	switch action {
	case core.ActionNone:
		c.mu.Unlock()
		return nil
	case core.ActionAppend:
		c.messages = append(c.messages, m)
	case core.ActionInsertContext:
		c.messages = slices.Insert(c.messages, 0, m)
		c.setContextLocked(content)
	case core.ActionReplaceContext:
		replaced = c.messages[0]
		c.messages[0] = m
		c.setContextLocked(content)
	case core.ActionRemoveContext:
		replaced = c.messages[0]
		c.messages = slices.Delete(c.messages, 0, 1)
		c.setContextLocked("")
	}
	c.mu.Unlock()

	c.logger.Debug("message added", "message_id", m.ID(), "role", m.Role(), "action", action.String())
	if replaced != nil {
		c.removed.Emit(replaced)
	}
	if action != core.ActionRemoveContext {
		c.added.Emit(m)
	}
	return nil
}

// RemoveMessage removes the message with the given id. A streaming message
// is aborted; removing the system message clears the config context.
func (c *Conversation) RemoveMessage(id string) error {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("remove message %s: %w", id, core.ErrMessageNotFound)
	}
	m := c.messages[idx]
	c.messages = slices.Delete(c.messages, idx, idx+1)
	if m.Role() == core.RoleSystem {
		c.setContextLocked("")
	}
	c.mu.Unlock()

	c.release(m)
	return nil
}

// ClearMessages removes every message except the context message.
func (c *Conversation) ClearMessages() {
	c.mu.Lock()
	var removed []*core.Message
	if c.hasContextLocked() {
		removed = slices.Clone(c.messages[1:])
		c.messages = c.messages[:1:1]
	} else {
		removed = c.messages
		c.messages = nil
	}
	c.mu.Unlock()

	for _, m := range removed {
		c.release(m)
	}
}

// release aborts m if it still streams and notifies subscribers.
func (c *Conversation) release(m *core.Message) {
	if m.State() != core.StateStopped {
		m.Abort()
	}
	c.logger.Debug("message removed", "message_id", m.ID(), "role", m.Role())
	c.removed.Emit(m)
}

// setContextLocked records the context text on a fresh config copy so that
// configs handed out earlier stay unchanged.
func (c *Conversation) setContextLocked(text string) {
	if c.cfg.Context == text {
		return
	}
	cfg := c.cfg.Clone()
	cfg.Context = text
	c.cfg = cfg
}

// moderate checks m against the moderation policy of cfg.
func (c *Conversation) moderate(ctx context.Context, cfg *config.Config, m *core.Message) error {
	if !cfg.Moderation.Enabled() || cfg.Dry || m.Content() == "" {
		return nil
	}
	flags, err := m.Moderate(ctx, c.opts.Moderator, cfg.APIKey, c.opts.Request)
	if err != nil {
		return err
	}
	if len(flags) == 0 {
		return nil
	}
	if cfg.Moderation == config.ModerationStrict {
		c.logger.Info("message rejected by moderation", "role", m.Role(), "flags", flags)
		return &core.ModerationError{Flags: flags}
	}
	c.logger.Warn("message flagged by moderation", "role", m.Role(), "flags", flags, "policy", string(cfg.Moderation))
	return nil
}
