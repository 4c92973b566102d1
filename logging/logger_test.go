package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf, Component: "conversation"})

	l.Debug("message added", "role", "user")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "message added", entry["msg"])
	assert.Equal(t, "conversation", entry["component"])
	assert.Equal(t, "user", entry["role"])
}

func TestNewLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

type recordingLogger struct{ lines []string }

func (r *recordingLogger) record(msg string, args ...any) {
	parts := []string{msg}
	for _, a := range args {
		parts = append(parts, a.(string))
	}
	r.lines = append(r.lines, strings.Join(parts, " "))
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.record(msg, args...) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.record(msg, args...) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.record(msg, args...) }
func (r *recordingLogger) Error(msg string, args ...any) { r.record(msg, args...) }

func TestWith(t *testing.T) {
	rec := &recordingLogger{}
	l := With(rec, "component", "tokenizer")
	l.Info("loaded", "encoding", "cl100k_base")
	assert.Equal(t, []string{"loaded component tokenizer encoding cl100k_base"}, rec.lines)

	assert.Equal(t, NoOpLogger{}, With(nil))
	assert.Equal(t, NoOpLogger{}, With(NoOpLogger{}, "k", "v"))
}
