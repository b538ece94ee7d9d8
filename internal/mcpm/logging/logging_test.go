package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { logger = nil })

	require.NoError(t, Init(false))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init(true))
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
}

func TestNilLoggerIsNop(t *testing.T) {
	t.Cleanup(func() { logger = nil })
	logger = nil

	assert.NotNil(t, GetLogger())
	assert.NotPanics(t, func() {
		Debug("debug")
		Warn("warn")
		Sync()
	})
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { logger = nil })

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))

	Debug("dropped")
	Info("Found Python", zap.String("version", "3.12.1"))
	Warn("Installer failed", zap.String("installer", "pip"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Found Python", entries[0].Message)
	assert.Equal(t, "3.12.1", entries[0].ContextMap()["version"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "pip", entries[1].ContextMap()["installer"])
}
