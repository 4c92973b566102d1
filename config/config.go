package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ModerationPolicy selects how flagged content is handled.
type ModerationPolicy string

const (
	// ModerationOff skips moderation entirely.
	ModerationOff ModerationPolicy = "off"
	// ModerationLenient moderates and logs flags but admits the message.
	ModerationLenient ModerationPolicy = "lenient"
	// ModerationStrict rejects flagged messages.
	ModerationStrict ModerationPolicy = "strict"
)

// Valid reports whether p is a known policy.
func (p ModerationPolicy) Valid() bool {
	switch p {
	case ModerationOff, ModerationLenient, ModerationStrict:
		return true
	default:
		return false
	}
}

// Enabled reports whether content has to be sent to a moderation service.
func (p ModerationPolicy) Enabled() bool {
	return p == ModerationLenient || p == ModerationStrict
}

// ParseModerationPolicy parses a policy name case-insensitively.
func ParseModerationPolicy(s string) (ModerationPolicy, error) {
	p := ModerationPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", &ValidationError{Field: "moderation", Reason: fmt.Sprintf("unknown policy %q, must be one of: off, lenient, strict", s)}
	}
	return p, nil
}

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("invalid config")

// ValidationError reports a single invalid setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidConfig }

// reservedParams are owned by the conversation and cannot be overridden.
var reservedParams = []string{"messages", "model", "stream"}

// Config is the per-conversation configuration. Treat a Config returned by a
// conversation as read-only; use Clone before modifying it.
type Config struct {
	APIKey     string
	Model      string
	Context    string
	Moderation ModerationPolicy
	Stream     bool
	Dry        bool
	// Params are forwarded verbatim to the completion request body.
	Params map[string]any
}

// Option mutates a Config under construction.
type Option func(c *Config)

// Default returns a config with every field at its default value.
func Default() *Config {
	return &Config{
		Model:      DefaultModel,
		Moderation: ModerationOff,
		Params:     map[string]any{},
	}
}

// FromReplace builds a config from the defaults and opts.
func FromReplace(opts ...Option) (*Config, error) {
	return build(Default(), opts)
}

// FromMerge builds a config from a copy of current and opts. Fields no
// option touches keep their current value.
func FromMerge(current *Config, opts ...Option) (*Config, error) {
	if current == nil {
		return FromReplace(opts...)
	}
	return build(current.Clone(), opts)
}

func build(c *Config, opts []Option) (*Config, error) {
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Params = maps.Clone(c.Params)
	if cp.Params == nil {
		cp.Params = map[string]any{}
	}
	return &cp
}

// Validate checks every setting and returns all violations joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}

	if strings.TrimSpace(c.Model) == "" {
		add("model", "must not be empty")
	}
	if c.APIKey == "" && !c.Dry {
		add("api_key", "required unless dry run is enabled")
	}
	if !c.Moderation.Valid() {
		add("moderation", fmt.Sprintf("unknown policy %q, must be one of: off, lenient, strict", c.Moderation))
	}
	for _, key := range reservedParams {
		if _, ok := c.Params[key]; ok {
			add("params."+key, "is reserved")
		}
	}
	if v, ok := c.Params["temperature"]; ok {
		if f, isNum := toFloat(v); !isNum || f < 0 || f > 2 {
			add("params.temperature", fmt.Sprintf("must be a number in [0, 2], got %v", v))
		}
	}
	if v, ok := c.Params["top_p"]; ok {
		if f, isNum := toFloat(v); !isNum || f < 0 || f > 1 {
			add("params.top_p", fmt.Sprintf("must be a number in [0, 1], got %v", v))
		}
	}
	if v, ok := c.Params["n"]; ok {
		if f, isNum := toFloat(v); !isNum || f != 1 {
			add("params.n", fmt.Sprintf("only a single choice is supported, got %v", v))
		}
	}
	return errors.Join(errs...)
}

// LogValue implements slog.LogValuer. The API key is never logged.
func (c *Config) LogValue() slog.Value {
	key := ""
	if c.APIKey != "" {
		key = "***"
	}
	return slog.GroupValue(
		slog.String("model", c.Model),
		slog.String("api_key", key),
		slog.Int("context_len", len(c.Context)),
		slog.String("moderation", string(c.Moderation)),
		slog.Bool("stream", c.Stream),
		slog.Bool("dry", c.Dry),
		slog.Any("params", slices.Sorted(maps.Keys(c.Params))),
	)
}

// WithAPIKey sets the key used for completion and moderation calls.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithModel sets the model identifier.
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithContext sets the system message text. Empty removes the context.
func WithContext(text string) Option { return func(c *Config) { c.Context = text } }

// WithModeration sets the moderation policy.
func WithModeration(p ModerationPolicy) Option { return func(c *Config) { c.Moderation = p } }

// WithStream sets the default streaming preference.
func WithStream(stream bool) Option { return func(c *Config) { c.Stream = stream } }

// WithDry enables or disables simulated responses.
func WithDry(dry bool) Option { return func(c *Config) { c.Dry = dry } }

// WithParam sets a single request parameter.
func WithParam(key string, value any) Option {
	return func(c *Config) {
		if c.Params == nil {
			c.Params = map[string]any{}
		}
		c.Params[key] = value
	}
}

// WithParams sets every given request parameter, keeping the others.
func WithParams(params map[string]any) Option {
	return func(c *Config) {
		if c.Params == nil {
			c.Params = map[string]any{}
		}
		maps.Copy(c.Params, params)
	}
}

// WithoutParam deletes a request parameter.
func WithoutParam(key string) Option {
	return func(c *Config) { delete(c.Params, key) }
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
