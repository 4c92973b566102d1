package testutil

import (
	"github.com/hupe1980/convo/core"
)

// StreamBuilder scripts a core.Stream for tests.
// Example:
//
//	s, release := NewStreamBuilder().Deltas("Hel", "lo").Gated().Build()
//	go m.ReadContentFromStream(ctx, s)
//	release()
type StreamBuilder struct {
	deltas []string
	err    error
	gated  bool
	open   bool
	buffer int
}

// NewStreamBuilder creates a builder for an empty, clean stream.
func NewStreamBuilder() *StreamBuilder { return &StreamBuilder{} }

// Deltas appends content deltas (chainable).
func (b *StreamBuilder) Deltas(d ...string) *StreamBuilder {
	b.deltas = append(b.deltas, d...)
	return b
}

// Err ends the stream with err after the deltas (chainable).
func (b *StreamBuilder) Err(err error) *StreamBuilder { b.err = err; return b }

// Gated holds back every delta until the release func is called (chainable).
func (b *StreamBuilder) Gated() *StreamBuilder { b.gated = true; return b }

// Open never ends the stream after the deltas; only cancellation stops it
// (chainable).
func (b *StreamBuilder) Open() *StreamBuilder { b.open = true; return b }

// Buffered gives the delta channel capacity n, so a producer can queue
// deltas and its final error before the consumer reads (chainable).
func (b *StreamBuilder) Buffered(n int) *StreamBuilder { b.buffer = n; return b }

// Build starts the producer and returns the stream with its release func.
// The release func is a no-op for ungated streams and safe to call twice.
func (b *StreamBuilder) Build() (*core.Stream, func()) {
	deltas := make(chan string, b.buffer)
	errs := make(chan error, 1)
	gate := make(chan struct{})
	released := false
	release := func() {
		if !released {
			released = true
			close(gate)
		}
	}
	if !b.gated {
		release()
	}

	script := append([]string(nil), b.deltas...)
	err, open := b.err, b.open
	go func() {
		<-gate
		for _, d := range script {
			deltas <- d
		}
		if open {
			return
		}
		if err != nil {
			errs <- err
		}
		close(deltas)
		close(errs)
	}()
	return core.NewStream(deltas, errs), release
}
