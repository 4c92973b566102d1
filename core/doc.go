// Package core provides the foundational domain types and collaborator
// interfaces of convo. It defines the core abstractions for:
//
//   - Roles (the closed set of message authors) and the admission rules that
//     keep a history well formed
//   - Messages (chat turns whose content may be materialized from a stream)
//   - Listeners (ordered subscribe / unsubscribe registries)
//   - Chat completion, moderation, tokenizer and pricing collaborators
//   - The error taxonomy shared by all higher layers
//
// The package keeps orchestration (conversation history, configuration) and
// vendor adapters out of scope so that custom backends can be plugged in by
// implementing the small interfaces declared here.
package core
