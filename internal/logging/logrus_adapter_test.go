package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonAdapter returns an adapter writing JSON lines at debug level into buf.
func jsonAdapter(buf *bytes.Buffer) *LogrusAdapter {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	return wrap(l)
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		level  string
		format string
		want   logrus.Level
		json   bool
	}{
		{"debug", "text", logrus.DebugLevel, false},
		{"warn", "json", logrus.WarnLevel, true},
		{"verbose", "text", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			adapter, ok := NewLogrusAdapter(tt.level, tt.format).(*LogrusAdapter)
			require.True(t, ok)
			assert.Equal(t, tt.want, adapter.entry.Logger.Level)
			_, isJSON := adapter.entry.Logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.json, isJSON)
		})
	}
}

func TestLogrusAdapter_RunFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	base := jsonAdapter(&buf)

	run := base.WithField(FieldRunID, "3f1c")
	run.WithFields(Field{Key: FieldStage, Value: "decode_payload"}).
		Debug("Archive member", Field{Key: FieldMember, Value: "camt053_1.xml"})
	run.WithError(errors.New("zlib: invalid header")).Error("Attestation failed")
	base.Info("Container initialized successfully")

	entries := lines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "3f1c", entries[0][FieldRunID])
	assert.Equal(t, "decode_payload", entries[0][FieldStage])
	assert.Equal(t, "camt053_1.xml", entries[0][FieldMember])

	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "3f1c", entries[1][FieldRunID])
	assert.Equal(t, "zlib: invalid header", entries[1][logrus.ErrorKey])
	assert.NotContains(t, entries[1], FieldStage)

	assert.NotContains(t, entries[2], FieldRunID, "derived fields must not leak into the parent")
}

func TestLogrusAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	adapter := jsonAdapter(&buf)
	adapter.entry.Logger.SetLevel(logrus.WarnLevel)

	adapter.Debug("hidden")
	adapter.Info("hidden")
	adapter.Warn("shown")

	entries := lines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
}

func TestNewDiscardLogger(t *testing.T) {
	adapter, ok := NewDiscardLogger().(*LogrusAdapter)
	require.True(t, ok)
	assert.Equal(t, io.Discard, adapter.entry.Logger.Out)
	assert.NotPanics(t, func() {
		adapter.WithField(FieldRunID, "x").Error("dropped")
	})
}

func TestOrDiscard(t *testing.T) {
	mock := NewMockLogger()
	assert.Same(t, mock, OrDiscard(mock))

	_, ok := OrDiscard(nil).(*LogrusAdapter)
	assert.True(t, ok)
}
