package testsupport

import (
	"path/filepath"
	"testing"

	"calmatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DiagnosticsDir = filepath.Join(base, "diagnostics")
	cfgVal.Paths.RawDir = filepath.Join(base, "raw")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRawDir points the config at an existing raw directory.
func WithRawDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.RawDir = dir
	}
}

// WithCaps sets the OB and DC count caps.
func WithCaps(maxOB, maxDC int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MaxOBCount = maxOB
		b.cfg.Matching.MaxDCCount = maxDC
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
