package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/convo/core"
)

// Prompt admits text as a user message and requests an assistant response.
// A streamed response is returned while its content is still arriving;
// subscribe to its streaming events or wait on Done. When the response
// cannot be produced or admitted, the user message is removed again and the
// history is left as it was before the call.
func (c *Conversation) Prompt(ctx context.Context, text string, optFns ...func(o *PromptOptions)) (*core.Message, error) {
	user, err := c.AddUserMessage(ctx, text)
	if err != nil {
		return nil, err
	}
	resp, err := c.respond(ctx, optFns)
	if err != nil {
		c.rollback(user)
		return nil, err
	}
	return resp, nil
}

// Reprompt regenerates the response following a user message. messageID
// names the user message, or an assistant message whose preceding message
// is the user turn to branch from. A non-empty newPrompt replaces the
// branch point's content first. Every message after the branch point is
// removed. When no response can be produced the branch point is removed
// too.
func (c *Conversation) Reprompt(ctx context.Context, messageID, newPrompt string, optFns ...func(o *PromptOptions)) (*core.Message, error) {
	branch, err := c.branchPoint(messageID)
	if err != nil {
		return nil, err
	}

	if newPrompt != "" {
		text := strings.TrimSpace(newPrompt)
		if text == "" {
			return nil, core.ErrEmptyUserContent
		}
		c.mu.RLock()
		cfg := c.cfg
		c.mu.RUnlock()
		if err := c.moderate(ctx, cfg, c.newMessage(core.RoleUser, text)); err != nil {
			return nil, err
		}
		if err := branch.SetContent(text); err != nil {
			return nil, err
		}
	}

	for _, m := range c.after(branch.ID()) {
		if err := c.RemoveMessage(m.ID()); err != nil && !errors.Is(err, core.ErrMessageNotFound) {
			return nil, err
		}
	}

	resp, err := c.respond(ctx, optFns)
	if err != nil {
		c.rollback(branch)
		return nil, err
	}
	return resp, nil
}

// respond requests a response and admits it as an assistant message.
func (c *Conversation) respond(ctx context.Context, optFns []func(o *PromptOptions)) (*core.Message, error) {
	msg, ch, err := c.chatCompletion(ctx, optFns)
	if err != nil {
		return nil, err
	}
	if err := c.AddMessage(ctx, msg); err != nil {
		ch.discard()
		msg.Abort()
		return nil, err
	}
	ch.admit()
	return msg, nil
}

// rollback removes m if it is still part of the history.
func (c *Conversation) rollback(m *core.Message) {
	if err := c.RemoveMessage(m.ID()); err == nil {
		c.logger.Debug("rolled back message", "message_id", m.ID(), "role", m.Role())
	}
}

func (c *Conversation) branchPoint(id string) (*core.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("reprompt %s: %w", id, core.ErrMessageNotFound)
	}
	switch m := c.messages[idx]; m.Role() {
	case core.RoleUser:
		return m, nil
	case core.RoleAssistant:
		if idx > 0 && c.messages[idx-1].Role() == core.RoleUser {
			return c.messages[idx-1], nil
		}
	}
	return nil, fmt.Errorf("reprompt %s: %w", id, core.ErrNoPriorUserMessage)
}

// after returns the messages following the one with the given id.
func (c *Conversation) after(id string) []*core.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexLocked(id)
	if idx < 0 {
		return nil
	}
	out := make([]*core.Message, len(c.messages)-idx-1)
	copy(out, c.messages[idx+1:])
	return out
}
