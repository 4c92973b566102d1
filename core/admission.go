package core

import "fmt"

// Action is the outcome of an admission decision.
type Action int

const (
	// ActionNone leaves the history untouched (e.g. clearing an absent context).
	ActionNone Action = iota
	// ActionAppend appends the candidate to the end of the history.
	ActionAppend
	// ActionInsertContext inserts the candidate at index 0.
	ActionInsertContext
	// ActionReplaceContext swaps the candidate in for the message at index 0.
	ActionReplaceContext
	// ActionRemoveContext removes the system message at index 0.
	ActionRemoveContext
)

// String returns a readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAppend:
		return "append"
	case ActionInsertContext:
		return "insert_context"
	case ActionReplaceContext:
		return "replace_context"
	case ActionRemoveContext:
		return "remove_context"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// History is the part of a conversation's state that admission depends on.
type History struct {
	// HasLast is false for an empty history.
	HasLast bool
	// LastRole is the role of the most recent message (valid when HasLast).
	LastRole Role
	// HasContext reports whether index 0 holds a system message.
	HasContext bool
}

// Admit decides how a candidate message of the given role joins a history.
// empty reports whether the (trimmed) candidate content is empty. Admit is a
// pure function; it never inspects or mutates a conversation.
//
// A system candidate replaces, inserts or removes the context message. A
// user or assistant candidate is appended unless the last message shares its
// role, in which case an *AdjacentRoleError is returned.
func Admit(candidate Role, empty bool, h History) (Action, error) {
	switch candidate {
	case RoleSystem:
		switch {
		case empty && h.HasContext:
			return ActionRemoveContext, nil
		case empty:
			return ActionNone, nil
		case h.HasContext:
			return ActionReplaceContext, nil
		default:
			return ActionInsertContext, nil
		}
	case RoleUser, RoleAssistant:
		if h.HasLast && h.LastRole == candidate {
			return ActionNone, &AdjacentRoleError{Role: candidate}
		}
		return ActionAppend, nil
	default:
		return ActionNone, fmt.Errorf("unknown role %q", candidate)
	}
}
