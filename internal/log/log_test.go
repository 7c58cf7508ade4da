package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("chatty"))
}

func TestError_AttachesErrAndPairs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	Error("export failed", errors.New("boom"), "year", 2025)
	Info("holidays loaded", "count", 16)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "export failed", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, "boom", fields["err"])
		assert.EqualValues(t, 2025, fields["year"])
		assert.EqualValues(t, 16, entries[1].ContextMap()["count"])
	}
}
