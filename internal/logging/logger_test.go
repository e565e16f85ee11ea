package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("debug"))
	require.Equal(t, LevelWarn, ParseLevel("WARN"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel(" error "))
	require.Equal(t, LevelInfo, ParseLevel("info"))
	require.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestComponentLoggerFormatsAndFilters(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelInfo)

	logger := NewComponentLogger("test")
	logger.Debug("hidden %d", 1)
	logger.Info("visible %d", 2)
	logger.Warn("also visible")

	out := buf.String()
	require.NotContains(t, out, "hidden 1")
	require.Contains(t, out, "[INFO] [test] visible 2")
	require.Contains(t, out, "[WARN] [test] also visible")
}

func TestSetLevelUnlocksDebug(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelDebug)

	NewComponentLogger("test").Debug("now visible")
	require.Contains(t, buf.String(), "[DEBUG] [test] now visible")
}

func TestNopAndOrNop(t *testing.T) {
	require.NotPanics(t, func() {
		Nop().Info("discarded")
		OrNop(nil).Error("discarded")
	})
	logger := NewComponentLogger("x")
	require.Equal(t, logger, OrNop(logger))
}
