// Package conversation implements the chat history engine: it admits
// messages while keeping the history well formed, drives streamed and
// batched completions, and accounts for token usage and cost.
//
// The invariants kept after every public operation are:
//
//   - at most one system message exists, and only at index 0
//   - no two adjacent user or assistant messages share a role
//   - the cumulative size and cost never decrease
//
// A Conversation tolerates a streaming goroutine running next to its caller,
// but Prompt, Reprompt and AddMessage must not be called concurrently on
// the same instance.
package conversation
