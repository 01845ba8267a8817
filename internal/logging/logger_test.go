package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComponentLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	logger := NewComponentLogger("cache")
	logger.Debug("dropped %d", 1)
	logger.Info("dropped too")
	logger.Warn("kept %s", "warning")
	logger.Error("kept error")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "[WARN] [cache] kept warning")
	require.Contains(t, out, "[ERROR] [cache] kept error")
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	logger := NewComponentLogger("x")
	require.Equal(t, logger, OrNop(logger))

	// Nop logger must be safe to call.
	Nop().Info("ignored %d", 42)
}
