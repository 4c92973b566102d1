package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hupe1980/convo/logging"
)

// DefaultEncoding is used for models tiktoken does not know (e.g. non-OpenAI models).
const DefaultEncoding = "cl100k_base"

// Counter is the subset of core.Tokenizer used as a fallback.
type Counter interface {
	CountTokens(text, model string) int
}

// TiktokenOptions configure a Tiktoken tokenizer.
type TiktokenOptions struct {
	// DefaultEncoding is used when a model has no registered encoding.
	DefaultEncoding string
	// Fallback counts tokens when no encoding could be loaded at all.
	Fallback Counter
	Logger   logging.Logger
}

// Tiktoken counts tokens with OpenAI's byte pair encodings. Encodings are
// loaded lazily per model and cached; a model whose encoding fails to load is
// remembered and served by the fallback counter. Safe for concurrent use.
type Tiktoken struct {
	opts TiktokenOptions

	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
	failed    map[string]bool
}

// NewTiktoken creates a Tiktoken tokenizer.
func NewTiktoken(optFns ...func(o *TiktokenOptions)) *Tiktoken {
	opts := TiktokenOptions{
		DefaultEncoding: DefaultEncoding,
		Fallback:        NewEstimator(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tiktoken{
		opts:      opts,
		encodings: make(map[string]*tiktoken.Tiktoken),
		failed:    make(map[string]bool),
	}
}

// CountTokens implements core.Tokenizer.
func (t *Tiktoken) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	enc := t.encoding(model)
	if enc == nil {
		return t.opts.Fallback.CountTokens(text, model)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encoding(model string) *tiktoken.Tiktoken {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enc, ok := t.encodings[model]; ok {
		return enc
	}
	if t.failed[model] {
		return nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(t.opts.DefaultEncoding)
	}
	if err != nil {
		t.opts.Logger.Warn("tiktoken encoding unavailable, using fallback counter",
			"model", model, "error", err)
		t.failed[model] = true
		return nil
	}
	t.encodings[model] = enc
	return enc
}
