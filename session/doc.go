// Package session keeps live conversations addressable by id.
//
// Store is the registry contract used by the convo façade; InMemoryStore is
// the process local implementation. Durable backends can be added in
// sub‑packages without changing any calling code – only the wiring layer
// decides which implementation to instantiate.
package session
