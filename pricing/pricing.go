// Package pricing estimates the monetary cost of chat-completion tokens.
//
// Prices are kept per model in USD per 1K tokens, with separate prompt
// (input) and completion (output) rates. Model identifiers are resolved by
// exact match first and then by the longest registered prefix, so dated
// snapshots such as "gpt-4o-2024-08-06" share the price of "gpt-4o".
package pricing

import (
	"sort"
	"strings"
)

// Price holds the input and output price in USD per 1K tokens.
type Price struct {
	Input  float64 `json:"input" toml:"input" yaml:"input"`
	Output float64 `json:"output" toml:"output" yaml:"output"`
}

// Table resolves model identifiers to prices. A Table is immutable and safe
// for concurrent use.
type Table struct {
	prices   map[string]Price
	prefixes []string // longest first
}

// NewTable builds a table from a model → price map.
func NewTable(prices map[string]Price) *Table {
	t := &Table{prices: make(map[string]Price, len(prices))}
	for model, p := range prices {
		t.prices[model] = p
		t.prefixes = append(t.prefixes, model)
	}
	sort.Slice(t.prefixes, func(i, j int) bool {
		if len(t.prefixes[i]) != len(t.prefixes[j]) {
			return len(t.prefixes[i]) > len(t.prefixes[j])
		}
		return t.prefixes[i] < t.prefixes[j]
	})
	return t
}

// Default carries list prices for common OpenAI and Anthropic chat models.
var Default = NewTable(map[string]Price{
	"gpt-3.5-turbo":     {Input: 0.0005, Output: 0.0015},
	"gpt-3.5-turbo-16k": {Input: 0.003, Output: 0.004},
	"gpt-4":             {Input: 0.03, Output: 0.06},
	"gpt-4-32k":         {Input: 0.06, Output: 0.12},
	"gpt-4-turbo":       {Input: 0.01, Output: 0.03},
	"gpt-4o":            {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":       {Input: 0.00015, Output: 0.0006},
	"gpt-4.1":           {Input: 0.002, Output: 0.008},
	"gpt-4.1-mini":      {Input: 0.0004, Output: 0.0016},
	"gpt-4.1-nano":      {Input: 0.0001, Output: 0.0004},
	"claude-3-5-haiku":  {Input: 0.0008, Output: 0.004},
	"claude-3-5-sonnet": {Input: 0.003, Output: 0.015},
	"claude-3-7-sonnet": {Input: 0.003, Output: 0.015},
	"claude-3-opus":     {Input: 0.015, Output: 0.075},
	"claude-sonnet-4":   {Input: 0.003, Output: 0.015},
	"claude-opus-4":     {Input: 0.015, Output: 0.075},
})

// Lookup returns the price of model. Unknown models report false.
func (t *Table) Lookup(model string) (Price, bool) {
	if p, ok := t.prices[model]; ok {
		return p, true
	}
	for _, prefix := range t.prefixes {
		if strings.HasPrefix(model, prefix) {
			return t.prices[prefix], true
		}
	}
	return Price{}, false
}

// With returns a copy of the table with model priced at p.
func (t *Table) With(model string, p Price) *Table {
	prices := make(map[string]Price, len(t.prices)+1)
	for k, v := range t.prices {
		prices[k] = v
	}
	prices[model] = p
	return NewTable(prices)
}

// Models lists the registered model identifiers in lexical order.
func (t *Table) Models() []string {
	models := make([]string, 0, len(t.prices))
	for m := range t.prices {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Cost returns the USD cost of tokens for model. Unknown models cost 0.
func (t *Table) Cost(model string, tokens int, output bool) float64 {
	if tokens <= 0 {
		return 0
	}
	p, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	rate := p.Input
	if output {
		rate = p.Output
	}
	return float64(tokens) * rate / 1000
}
