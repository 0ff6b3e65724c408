package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmatch/internal/config"
	"calmatch/internal/logging"
)

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf})
	require.NoError(t, err)

	component := logging.NewComponentLogger(logger.Logger, "matchrun")
	component.Info("frames listed", logging.Int("samples", 3), logging.String("folder", "/data/my sample"))
	component.Debug("hidden")

	line := buf.String()
	assert.Contains(t, line, "INFO matchrun: frames listed")
	assert.Contains(t, line, "samples=3")
	assert.Contains(t, line, `folder="/data/my sample"`)
	assert.NotContains(t, line, "component=")
	assert.NotContains(t, line, "hidden")
	assert.NotContains(t, line, ".go:")
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestConsoleGroupsFlatten(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	require.NoError(t, err)

	logger.WithGroup("caps").Info("applied", logging.Int("max_count", 2))
	assert.Contains(t, buf.String(), "caps.max_count=2")
}

func TestDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Console: &buf})
	require.NoError(t, err)

	logger.Debug("with caller")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Console: &buf})
	require.NoError(t, err)

	logger.Warn("skipped", logging.Error(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "skipped", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "ts")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewFromConfigWritesFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "warn"

	var console bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &console)
	require.NoError(t, err)
	logger.Info("not written")
	logger.Warn("written", logging.String(logging.FieldRunID, "abc"))
	require.NoError(t, logger.Close())
	assert.Contains(t, console.String(), "WARN written")

	data, err := os.ReadFile(cfg.LogPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "written", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	require.NoError(t, err)

	ctx := logging.WithRunID(context.Background(), "run-1")
	ctx = logging.WithSampleFolder(ctx, "sample")
	logging.WithContext(ctx, logger.Logger).Info("start")

	assert.Contains(t, buf.String(), "run_id=run-1")
	assert.Contains(t, buf.String(), "sample_folder=sample")

	id, ok := logging.RunIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-1", id)
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	require.NoError(t, err)

	logging.WarnWithContext(logger.Logger, "unreadable frame", "frame_skipped", logging.String(logging.FieldImpact, "custom"))
	out := buf.String()
	assert.Contains(t, out, "event_type=frame_skipped")
	assert.Contains(t, out, "impact=custom")
	assert.Equal(t, 1, strings.Count(out, "impact="))
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNop()
	assert.False(t, logger.Enabled(context.Background(), 12))
	logging.WarnWithContext(nil, "ignored", "none")
}
