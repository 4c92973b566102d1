// Package model provides chat completion clients that need no network:
// DryModel echoes the last message to simulate a response, MockModel serves
// canned completions for tests and examples, and RateLimitedClient throttles
// any core.ChatCompletionClient.
//
// Vendor adapters live in the openai and anthropic subpackages so the core
// packages stay free of SDK dependencies.
package model
