package model

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/convo/core"
)

// Default DryModel timings.
const (
	DefaultDryDelay      = time.Second
	DefaultDryChunkDelay = 30 * time.Millisecond
)

// DryOptions configure the response simulation.
type DryOptions struct {
	// Delay is the wait before a batched response is returned.
	Delay time.Duration
	// ChunkDelay is the pause before each streamed chunk.
	ChunkDelay time.Duration
}

// DryModel simulates a completion service by echoing the content of the
// last message. No request leaves the process.
type DryModel struct {
	opts DryOptions
}

// NewDryModel creates a DryModel with the default timings.
func NewDryModel(optFns ...func(o *DryOptions)) *DryModel {
	opts := DryOptions{
		Delay:      DefaultDryDelay,
		ChunkDelay: DefaultDryChunkDelay,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &DryModel{opts: opts}
}

// CreateChatCompletion waits Delay and echoes the last message.
func (d *DryModel) CreateChatCompletion(ctx context.Context, req core.CompletionRequest) (*core.CompletionResponse, error) {
	if err := sleep(ctx, d.opts.Delay); err != nil {
		return nil, err
	}
	return &core.CompletionResponse{
		ID:           core.NewID(),
		Content:      req.LastContent(),
		FinishReason: "stop",
	}, nil
}

// CreateChatCompletionStream echoes the last message as word chunks, each
// keeping its trailing whitespace, one every ChunkDelay.
func (d *DryModel) CreateChatCompletionStream(ctx context.Context, req core.CompletionRequest) (*core.Stream, error) {
	chunks := splitWords(req.LastContent())
	deltas := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(deltas)
		for _, chunk := range chunks {
			if err := sleep(ctx, d.opts.ChunkDelay); err != nil {
				errs <- err
				return
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case deltas <- chunk:
			}
		}
	}()
	return core.NewStream(deltas, errs), nil
}

// splitWords splits s after every space so that joining the chunks yields s.
func splitWords(s string) []string {
	parts := strings.SplitAfter(s, " ")
	chunks := parts[:0]
	for _, p := range parts {
		if p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
