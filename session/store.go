package session

import (
	"errors"

	"github.com/hupe1980/convo/conversation"
)

// ErrNotFound is returned when no conversation is stored under an id.
var ErrNotFound = errors.New("conversation not found")

// Store is a registry of live conversations.
type Store interface {
	// Save stores c under its id, replacing any previous entry.
	Save(c *conversation.Conversation) error
	// Get returns the conversation with the given id or ErrNotFound.
	Get(id string) (*conversation.Conversation, error)
	// Delete removes and returns the conversation with the given id or
	// ErrNotFound.
	Delete(id string) (*conversation.Conversation, error)
	// List returns the ids of every stored conversation in insertion order.
	List() ([]string, error)
}
