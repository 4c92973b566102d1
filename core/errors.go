package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyUserContent is returned when a user message trims to empty.
	ErrEmptyUserContent = errors.New("user message content is empty")
	// ErrAdjacentRole is matched by *AdjacentRoleError.
	ErrAdjacentRole = errors.New("adjacent messages must not share a role")
	// ErrModerationViolation is matched by *ModerationError.
	ErrModerationViolation = errors.New("message flagged by moderation")
	// ErrMessageNotFound is returned when a message id is not part of the history.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNoPriorUserMessage is returned when a reprompt has no user turn to branch from.
	ErrNoPriorUserMessage = errors.New("no prior user message")
	// ErrDuplicateMessage is returned when a message is admitted twice.
	ErrDuplicateMessage = errors.New("message already in conversation")
	// ErrMessageStreaming is returned when content is set while a stream writes it.
	ErrMessageStreaming = errors.New("message is streaming")
	// ErrStreamConsumed is returned when a message reads a second stream.
	ErrStreamConsumed = errors.New("message stream already consumed")
	// ErrNoCompletionClient is returned when a live request has no client.
	ErrNoCompletionClient = errors.New("no chat completion client configured")
	// ErrNoModerationClient is returned when moderation is enabled without a client.
	ErrNoModerationClient = errors.New("no moderation client configured")
	// ErrConversationClosed is returned when a closed conversation is asked for a response.
	ErrConversationClosed = errors.New("conversation closed")
)

// AdjacentRoleError reports an admission that would place two messages of
// the same role next to each other.
type AdjacentRoleError struct {
	Role Role
}

func (e *AdjacentRoleError) Error() string {
	return fmt.Sprintf("cannot add %s message: last message is also %s", e.Role, e.Role)
}

// Is makes errors.Is(err, ErrAdjacentRole) hold.
func (e *AdjacentRoleError) Is(target error) bool { return target == ErrAdjacentRole }

// ModerationError reports the flags that caused a strict moderation policy
// to reject a message.
type ModerationError struct {
	Flags []string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("message flagged by moderation: %s", strings.Join(e.Flags, ", "))
}

// Is makes errors.Is(err, ErrModerationViolation) hold.
func (e *ModerationError) Is(target error) bool { return target == ErrModerationViolation }

// TransportError wraps a failure of an external completion or moderation call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// WrapTransport wraps err in a *TransportError unless it already is one.
// A nil err yields nil.
func WrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
