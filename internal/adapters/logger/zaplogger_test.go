package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"Error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestZapLogger_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(zap.New(core))
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "cycle done", map[string]interface{}{"agent": "ema_cross/ETHUSDT", "newCandles": 2})
	l.Warn(ctx, "stale snapshot", nil)
	l.Error(ctx, errors.New("boom"), "fetch failed", map[string]interface{}{"product": "ETHUSDT"})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "cycle done", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"agent": "ema_cross/ETHUSDT", "newCandles": int64(2)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
	assert.Equal(t, "ETHUSDT", entries[2].ContextMap()["product"])
}

func TestZapLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core)).With(map[string]interface{}{"agent": "a1"})

	l.Debug(context.Background(), "tick", map[string]interface{}{"n": "1"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, map[string]interface{}{"agent": "a1", "n": "1"}, logs.All()[0].ContextMap())
}

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger(zapcore.WarnLevel)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
