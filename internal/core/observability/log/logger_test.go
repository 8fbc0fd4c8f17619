package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_FieldsReachCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithCore(core)
	savedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	logger.With(Category("Accounts")).Info("saved",
		Int("entities", 3),
		Int32("type_ref", 2),
		Uint64("raw_serial", 0xFFFFFFFF),
		Bool("atomic", true),
		Time("saved_at", savedAt),
		Strings("types", []string{"world.Account"}),
		Error(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "saved", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "Accounts", ctx["category"])
	assert.EqualValues(t, 3, ctx["entities"])
	assert.EqualValues(t, 2, ctx["type_ref"])
	assert.EqualValues(t, uint64(0xFFFFFFFF), ctx["raw_serial"])
	assert.Equal(t, true, ctx["atomic"])
	assert.Equal(t, savedAt, ctx["saved_at"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewWithOptions_BadOutput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "worldstore.log")

	logger, err := NewWithOptions(Options{Level: LevelInfo, Outputs: []string{missing}})
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestProvide_ReturnsFirstBuiltLogger(t *testing.T) {
	first, err := NewWithOptions(Options{Level: LevelError, Outputs: []string{filepath.Join(t.TempDir(), "a.log")}})
	require.NoError(t, err)
	_, err = NewWithOptions(Options{Level: LevelDebug, Encoding: "console"})
	require.NoError(t, err)

	assert.Same(t, first, Provide())
}
