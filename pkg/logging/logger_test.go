package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOutput captures entries in memory for assertions.
type testOutput struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (o *testOutput) Write(e LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, e)
	return nil
}

func (o *testOutput) Sync() error  { return nil }
func (o *testOutput) Close() error { return nil }

func (o *testOutput) captured() []LogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]LogEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
	}{
		{"DEBUG", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"ERROR", ERROR},
		{"FATAL", FATAL},
		{"bogus", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.input))
		})
	}
}

func TestLoggerSeverityFiltering(t *testing.T) {
	out := &testOutput{}
	logger := NewLogger(Config{Severity: WARN, Outputs: []Output{out}})

	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped too")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept as well")

	entries := out.captured()
	require.Len(t, entries, 2)
	assert.Equal(t, WARN, entries[0].Severity)
	assert.Equal(t, ERROR, entries[1].Severity)
}

func TestLoggerGenerationContext(t *testing.T) {
	out := &testOutput{}
	logger := NewLogger(Config{Severity: DEBUG, Outputs: []Output{out}})

	ctx := WithGeneration(context.Background(), 7)
	logger.Info(ctx, "evolving")

	entries := out.captured()
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Generation)
	assert.Equal(t, 7, entries[0].Fields["generation"])
}

func TestLoggerDefaultFields(t *testing.T) {
	out := &testOutput{}
	logger := NewLogger(Config{
		Severity:      DEBUG,
		Outputs:       []Output{out},
		DefaultFields: map[string]interface{}{"run": "test"},
	})

	logger.Info(context.Background(), "hello")

	entries := out.captured()
	require.Len(t, entries, 1)
	assert.Equal(t, "test", entries[0].Fields["run"])
}

func TestGetLoggerSingleton(t *testing.T) {
	custom := NewLogger(Config{Severity: ERROR})
	SetLogger(custom)
	assert.Same(t, custom, GetLogger())
}
