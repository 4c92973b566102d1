package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Absent keys stay nil and leave the
// corresponding field untouched.
type fileConfig struct {
	APIKey     *string        `toml:"api_key" yaml:"api_key"`
	Model      *string        `toml:"model" yaml:"model"`
	Context    *string        `toml:"context" yaml:"context"`
	Moderation *string        `toml:"moderation" yaml:"moderation"`
	Stream     *bool          `toml:"stream" yaml:"stream"`
	Dry        *bool          `toml:"dry" yaml:"dry"`
	Params     map[string]any `toml:"params" yaml:"params"`
}

// LoadFile decodes a TOML (.toml) or YAML (.yaml, .yml) file into an option.
// Environment references in api_key (e.g. "${OPENAI_API_KEY}") are expanded.
// Unknown keys are rejected.
func LoadFile(path string) (Option, error) {
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.DecodeFile(path, &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in %s: %v", path, undecoded)
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open YAML file: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	return fc.option(), nil
}

func (fc fileConfig) option() Option {
	return func(c *Config) {
		if fc.APIKey != nil {
			c.APIKey = os.ExpandEnv(*fc.APIKey)
		}
		if fc.Model != nil {
			c.Model = *fc.Model
		}
		if fc.Context != nil {
			c.Context = *fc.Context
		}
		if fc.Moderation != nil {
			c.Moderation = ModerationPolicy(strings.ToLower(strings.TrimSpace(*fc.Moderation)))
		}
		if fc.Stream != nil {
			c.Stream = *fc.Stream
		}
		if fc.Dry != nil {
			c.Dry = *fc.Dry
		}
		if len(fc.Params) > 0 {
			WithParams(fc.Params)(c)
		}
	}
}
