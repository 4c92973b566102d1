package config

import (
	"os"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvModel      = "CONVO_MODEL"
	EnvContext    = "CONVO_CONTEXT"
	EnvModeration = "CONVO_MODERATION"
	EnvStream     = "CONVO_STREAM"
	EnvDry        = "CONVO_DRY"
)

// FromEnv returns an option applying the settings present in the
// environment. Unset variables leave the field untouched; an unknown
// moderation policy surfaces as a validation error.
func FromEnv() Option {
	var opts []Option
	if v, ok := os.LookupEnv(EnvAPIKey); ok {
		opts = append(opts, WithAPIKey(v))
	}
	if v, ok := os.LookupEnv(EnvModel); ok {
		opts = append(opts, WithModel(v))
	}
	if v, ok := os.LookupEnv(EnvContext); ok {
		opts = append(opts, WithContext(v))
	}
	if v, ok := os.LookupEnv(EnvModeration); ok {
		opts = append(opts, WithModeration(ModerationPolicy(strings.ToLower(strings.TrimSpace(v)))))
	}
	if v, ok := getEnvBool(EnvStream); ok {
		opts = append(opts, WithStream(v))
	}
	if v, ok := getEnvBool(EnvDry); ok {
		opts = append(opts, WithDry(v))
	}
	return func(c *Config) {
		for _, opt := range opts {
			opt(c)
		}
	}
}

// getEnvBool parses key as a boolean. Valid true values are 1, true, yes and
// on; valid false values are 0, false, no and off (case-insensitive).
func getEnvBool(key string) (bool, bool) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
