package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CALMATCH_RAW_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, resolved)
	assert.False(t, exists)

	assert.Equal(t, filepath.Join(tempHome, ".local", "share", "calmatch", "logs"), cfg.Paths.LogDir)
	assert.Equal(t, filepath.Join(tempHome, ".local", "share", "calmatch"), cfg.Paths.StateDir)
	assert.Equal(t, []string{"tif", "tiff"}, cfg.Matching.Extensions)
	assert.Equal(t, 8, cfg.Matching.ExtractWorkers)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Zero(t, cfg.OBMaxOffset())
	assert.False(t, cfg.HasCalibrationRoots())
}

func TestLoadFromTOML(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "calmatch.toml")
	content := `
[paths]
raw_dir = "~/IPTS-1234/raw"
dc_dirs = ["/data/dc", " "]

[matching]
max_ob_count = 5
max_ob_offset_minutes = 90
extensions = [".TIF", "tiff", "tif"]

[logging]
format = "JSON"
level = "Debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	assert.Equal(t, filepath.Join(tempHome, "IPTS-1234", "raw"), cfg.Paths.RawDir)
	assert.Equal(t, []string{"/data/dc"}, cfg.Paths.DCDirs)
	assert.Equal(t, 5, cfg.Matching.MaxOBCount)
	assert.Equal(t, 90*time.Minute, cfg.OBMaxOffset())
	assert.Equal(t, []string{"tif", "tiff"}, cfg.Matching.Extensions)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.HasCalibrationRoots())
}

func TestLoadRawDirFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	raw := t.TempDir()
	t.Setenv("CALMATCH_RAW_DIR", raw)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, raw, cfg.Paths.RawDir)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "calmatch.toml")
	require.NoError(t, os.WriteFile(path, []byte("[matching]\nmax_obs = 3\n"), 0o644))

	_, _, _, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsNegativeCaps(t *testing.T) {
	cfg := config.Default()
	cfg.Matching.MaxOBCount = -1
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Matching.MaxDCOffsetMinutes = -5
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestFractionalOffsetMinutes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "calmatch.toml")
	content := "[matching]\nmax_ob_offset_minutes = 0.5\nmax_dc_offset_minutes = 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, _, _, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.OBMaxOffset())
	assert.Equal(t, 2*time.Minute, cfg.DCMaxOffset())

	cfg.Matching.MaxOBOffsetMinutes = math.NaN()
	assert.Error(t, cfg.Validate())
	cfg.Matching.MaxOBOffsetMinutes = math.Inf(1)
	assert.Error(t, cfg.Validate())
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	require.NoError(t, toml.Unmarshal([]byte(config.SampleConfig()), &cfg))
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Matching.ExtractWorkers)
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.SampleConfig(), string(data))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.DiagnosticsDir = filepath.Join(base, "diag")
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.Paths.DiagnosticsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, filepath.Join(base, "state", "history.db"), cfg.HistoryPath())
}
