// Package tokenizer counts the tokens of message content.
//
// Two implementations are provided:
//   - Estimator: a dependency free heuristic blending word and character
//     counts; deterministic and suited to tests and unknown models
//   - Tiktoken: exact byte pair encoding counts for OpenAI models via
//     github.com/pkoukk/tiktoken-go, falling back to a secondary counter when
//     an encoding cannot be loaded
//
// Both satisfy core.Tokenizer.
package tokenizer
