package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for messages and conversations.
func NewID() string { return uuid.NewString() }
