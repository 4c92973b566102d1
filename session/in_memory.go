package session

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/convo/conversation"
)

// InMemoryStore is a volatile Store implementation keeping conversations in
// a process local map. It is safe for concurrent access and best suited for
// CLIs, tests or ephemeral demo servers.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
	order         []string
}

// NewInMemoryStore constructs an empty in‑memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string]*conversation.Conversation)}
}

// Save stores c under c.ID().
func (s *InMemoryStore) Save(c *conversation.Conversation) error {
	if c == nil {
		return fmt.Errorf("save: nil conversation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.ID()]; !ok {
		s.order = append(s.order, c.ID())
	}
	s.conversations[c.ID()] = c
	return nil
}

// Get returns the conversation stored under id.
func (s *InMemoryStore) Get(id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// Delete removes the conversation stored under id.
func (s *InMemoryStore) Delete(id string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	delete(s.conversations, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return c, nil
}

// List returns the stored ids in insertion order.
func (s *InMemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), nil
}
