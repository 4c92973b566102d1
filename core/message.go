package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/convo/pricing"
	"github.com/hupe1980/convo/tokenizer"
)

// StreamState tracks the lifecycle of a message's content.
type StreamState int

const (
	// StateIdle is a streamed message whose stream has not started yet.
	StateIdle StreamState = iota
	// StateStreaming is a message whose content is being appended by a stream.
	StateStreaming
	// StateStopped is a message whose content is final (or settable).
	StateStopped
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StreamingUpdate is emitted for every delta a stream appends.
type StreamingUpdate struct {
	Message *Message
	// Delta is the newly appended fragment.
	Delta string
	// Content is the accumulated content including Delta.
	Content string
}

// MessageOptions inject the collaborators used for size and cost.
type MessageOptions struct {
	Tokenizer Tokenizer
	Pricing   Pricer
}

// Message is a single chat turn. Size and cost are derived from the current
// content on every access, so they track a message while it streams.
//
// Content is guarded by a mutex: a stream goroutine appends while any other
// goroutine may read.
type Message struct {
	id        string
	role      Role
	model     string
	createdAt time.Time
	tokenizer Tokenizer
	pricer    Pricer

	mu      sync.RWMutex
	content strings.Builder
	state   StreamState
	err     error
	cancel  context.CancelFunc
	aborted bool
	done    chan struct{}

	updates *Listeners[StreamingUpdate]
	stops   *Listeners[*Message]
}

func newMessage(role Role, content, model string, state StreamState, optFns []func(o *MessageOptions)) *Message {
	opts := MessageOptions{
		Tokenizer: tokenizer.NewEstimator(),
		Pricing:   pricing.Default,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	m := &Message{
		id:        NewID(),
		role:      role,
		model:     model,
		createdAt: time.Now().UTC(),
		tokenizer: opts.Tokenizer,
		pricer:    opts.Pricing,
		state:     state,
		done:      make(chan struct{}),
		updates:   NewListeners[StreamingUpdate](),
		stops:     NewListeners[*Message](),
	}
	m.content.WriteString(strings.TrimSpace(content))
	if state == StateStopped {
		close(m.done)
	}
	return m
}

// NewMessage creates a message whose content is final. Content is trimmed.
func NewMessage(role Role, content, model string, optFns ...func(o *MessageOptions)) *Message {
	return newMessage(role, content, model, StateStopped, optFns)
}

// NewStreamingMessage creates an empty, idle assistant message that is
// filled by ReadContentFromStream.
func NewStreamingMessage(model string, optFns ...func(o *MessageOptions)) *Message {
	return newMessage(RoleAssistant, "", model, StateIdle, optFns)
}

// ID returns the stable message identifier.
func (m *Message) ID() string { return m.id }

// Role returns the author role.
func (m *Message) Role() Role { return m.role }

// Model returns the model the message is priced against.
func (m *Message) Model() string { return m.model }

// CreatedAt returns the UTC creation time.
func (m *Message) CreatedAt() time.Time { return m.createdAt }

// Content returns the current content.
func (m *Message) Content() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.content.String()
}

// SetContent replaces the (trimmed) content. It fails with ErrMessageStreaming
// while a stream owns the content and with ErrEmptyUserContent when a user
// message would be left blank.
func (m *Message) SetContent(content string) error {
	content = strings.TrimSpace(content)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStreaming {
		return ErrMessageStreaming
	}
	if m.role == RoleUser && content == "" {
		return ErrEmptyUserContent
	}
	m.content.Reset()
	m.content.WriteString(content)
	return nil
}

// State returns the streaming state.
func (m *Message) State() StreamState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsStreaming reports whether a stream is currently appending content.
func (m *Message) IsStreaming() bool { return m.State() == StateStreaming }

// Err returns the error that ended the stream, or nil.
func (m *Message) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Done is closed once the message reached StateStopped and its stop
// subscribers returned.
func (m *Message) Done() <-chan struct{} { return m.done }

// Size returns the token count of the current content.
func (m *Message) Size() int {
	return m.tokenizer.CountTokens(m.Content(), m.model)
}

// Cost returns the estimated USD cost of the current content. Assistant
// messages are priced as completion output, all others as prompt input.
func (m *Message) Cost() float64 {
	return m.pricer.Cost(m.model, m.Size(), m.role == RoleAssistant)
}

// ChatMessage projects the message to a role/content pair.
func (m *Message) ChatMessage() ChatMessage {
	return ChatMessage{Role: m.role, Content: m.Content()}
}

// OnStreamingUpdate subscribes fn to content deltas.
func (m *Message) OnStreamingUpdate(fn func(StreamingUpdate)) ListenerID {
	return m.updates.Add(fn)
}

// OffStreamingUpdate removes a streaming update subscription.
func (m *Message) OffStreamingUpdate(id ListenerID) bool { return m.updates.Remove(id) }

// OnStreamingStop subscribes fn to the terminal stop event, emitted exactly
// once per stream.
func (m *Message) OnStreamingStop(fn func(*Message)) ListenerID {
	return m.stops.Add(fn)
}

// OnceStreamingStop subscribes fn to the stop event and unsubscribes it
// before it runs.
func (m *Message) OnceStreamingStop(fn func(*Message)) ListenerID {
	return m.stops.Once(fn)
}

// OffStreamingStop removes a streaming stop subscription.
func (m *Message) OffStreamingStop(id ListenerID) bool { return m.stops.Remove(id) }

// Moderate classifies the content with client. The message is not modified.
func (m *Message) Moderate(ctx context.Context, client ModerationClient, apiKey string, opts RequestOptions) ([]string, error) {
	if client == nil {
		return nil, ErrNoModerationClient
	}
	flags, err := client.Moderate(ctx, m.Content(), apiKey, opts)
	if err != nil {
		return nil, WrapTransport("moderation", err)
	}
	return flags, nil
}

// Abort cancels an in-flight (or not yet started) stream. The message stops
// with context.Canceled and keeps the content received so far.
func (m *Message) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted = true
	if m.cancel != nil {
		m.cancel()
	}
}

// ReadContentFromStream consumes s until it ends, ctx is done or the message
// is aborted. Every delta is appended and emitted as a StreamingUpdate; the
// stop event fires exactly once afterwards. Only an idle message may read a
// stream. The returned error is also available from Err.
func (m *Message) ReadContentFromStream(ctx context.Context, s *Stream) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrStreamConsumed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.cancel = cancel
	m.state = StateStreaming
	if m.aborted {
		cancel()
	}
	m.mu.Unlock()

	err := m.consume(ctx, s)

	m.mu.Lock()
	m.state = StateStopped
	m.err = err
	m.cancel = nil
	m.mu.Unlock()

	m.stops.Emit(m)
	close(m.done)
	return err
}

// consume reads Deltas until the producer closes it and only then collects
// the result from Errs, so buffered deltas are never lost to an error.
func (m *Message) consume(ctx context.Context, s *Stream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delta, ok := <-s.Deltas:
			if !ok {
				return m.drain(ctx, s.Errs)
			}
			m.append(delta)
		}
	}
}

// drain waits for the producer's final error after the delta channel closed.
func (m *Message) drain(ctx context.Context, errs <-chan error) error {
	if errs == nil {
		return nil
	}
	select {
	case err := <-errs:
		return streamErr(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Message) append(delta string) {
	if delta == "" {
		return
	}
	m.mu.Lock()
	m.content.WriteString(delta)
	content := m.content.String()
	m.mu.Unlock()
	m.updates.Emit(StreamingUpdate{Message: m, Delta: delta, Content: content})
}

func streamErr(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return WrapTransport("chat completion stream", err)
}
