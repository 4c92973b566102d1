package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/convo/core"
)

// WordTokenizer counts whitespace separated words.
type WordTokenizer struct{}

// CountTokens implements core.Tokenizer.
func (WordTokenizer) CountTokens(text, _ string) int { return len(strings.Fields(text)) }

// FlatPricer prices every model the same.
type FlatPricer struct {
	Input  float64
	Output float64
}

// Cost implements core.Pricer.
func (p FlatPricer) Cost(_ string, tokens int, output bool) float64 {
	if output {
		return float64(tokens) * p.Output
	}
	return float64(tokens) * p.Input
}

// WaitForStop fails the test if m does not stop within timeout.
func WaitForStop(t testing.TB, m *core.Message, timeout time.Duration) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(timeout):
		t.Fatalf("message %s did not stop within %s (state %s)", m.ID(), timeout, m.State())
	}
}

// IDs returns the ids of msgs in order.
func IDs(msgs []*core.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID()
	}
	return ids
}

// Roles returns the roles of msgs in order.
func Roles(msgs []*core.Message) []core.Role {
	roles := make([]core.Role, len(msgs))
	for i, m := range msgs {
		roles[i] = m.Role()
	}
	return roles
}
