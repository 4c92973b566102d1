// Package logging provides a minimal logging interface and adapters for convo.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that conversations, model adapters and tokenizers use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - With for attaching component attributes
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	c := convo.New(func(o *convo.Options) { o.Logger = logger })
//
// The design keeps the interface minimal to avoid vendor lock-in while
// supporting structured logging where available.
package logging
