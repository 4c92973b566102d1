// Package config holds the validated settings of a conversation.
//
// A Config is built from functional options, either on top of the defaults
// (FromReplace) or on top of an existing config (FromMerge). Options can also
// be sourced from the environment (FromEnv) or from a TOML or YAML file
// (LoadFile):
//
//	fileOpt, err := config.LoadFile("convo.toml")
//	if err != nil {
//		return err
//	}
//	cfg, err := config.FromReplace(fileOpt, config.FromEnv(), config.WithStream(true))
//
// Every constructor validates the result; invalid settings are reported as
// *ValidationError values matching ErrInvalidConfig.
package config
